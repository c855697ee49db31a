package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/sparqld/internal/cli/ui"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the routes the configuration mounts",
		Long: `Resolve the endpoint configuration graph and print every route the
server would mount, then close the stores it opened.

Resources whose cfg:type names no known kind are reported with the
closest known kinds.`,
		RunE: runRoutes,
	}
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewApp(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	printRoutes(cmd, app)
	return nil
}

func printRoutes(cmd *cobra.Command, app *App) {
	out := cmd.OutOrStdout()

	handlers := make(map[string]string, len(app.Endpoints))
	for _, d := range app.Endpoints {
		handlers[d.Path] = "sparql " + d.Kind.String()
	}
	handlers[HealthPath] = "health"
	if app.Metrics != nil {
		handlers[app.Config.Metrics.Path] = "metrics"
	}

	ui.Header(out, fmt.Sprintf("Routes (%s)", app.Config.Endpoints.Configuration), noColor)
	table := ui.NewTable(out, noColor, "METHOD", "PATH", "HANDLER")
	for _, route := range app.Router.Routes() {
		table.AddRow(route.Method, route.Pattern, handlers[route.Pattern])
	}
	table.Render()

	kinds := app.Registry.Kinds()
	for _, unknown := range app.UnknownKinds() {
		fmt.Fprintln(out)
		fmt.Fprint(out, ui.UnknownKind(unknown[0], unknown[1], kinds, noColor))
	}
}
