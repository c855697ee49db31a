// Package commands implements the sparqld command line.
package commands

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

var (
	configPath    string
	endpointsPath string
	noColor       bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sparqld",
		Short: "SPARQL 1.1 Protocol server",
		Long: color.CyanString(`sparqld - SPARQL 1.1 Protocol server

Serves SPARQL query and update endpoints declared in an RDF
configuration graph, backed by in-memory, SQL or Redis quad stores.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to sparqld.yaml (default: ./sparqld.yaml)")
	rootCmd.PersistentFlags().StringVarP(&endpointsPath, "endpoints", "e", "", "Path to the endpoint configuration graph (overrides endpoints.configuration)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewRoutesCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the sparqld version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			title := color.New(color.FgCyan, color.Bold)
			if noColor {
				title.DisableColor()
			}
			out := cmd.OutOrStdout()
			for _, line := range [][2]string{
				{"sparqld version", Version},
				{"Git commit", GitCommit},
				{"Build date", BuildDate},
				{"Go version", goVer},
			} {
				title.Fprintf(out, "%s: ", line[0])
				fmt.Fprintln(out, line[1])
			}
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
