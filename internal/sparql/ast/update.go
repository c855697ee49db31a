package ast

import "github.com/conduit-lang/sparqld/internal/rdf"

// Command is one operation of a SPARQL update request.
type Command interface {
	// Name returns the SPARQL keyword of the command.
	Name() string
}

// DatasetCommand is a command whose WHERE clause is evaluated against a
// dataset that WITH, USING and USING NAMED can override.
type DatasetCommand interface {
	Command
	// HasDatasetClause reports whether the command itself carries WITH,
	// USING or USING NAMED.
	HasDatasetClause() bool
	AddUsingGraph(graph rdf.IRI)
	AddUsingNamedGraph(graph rdf.IRI)
}

// CommandSet is a parsed update request.
type CommandSet struct {
	Prologue
	Commands []Command
}

// DatasetCommands returns the commands that accept dataset overrides.
func (cs *CommandSet) DatasetCommands() []DatasetCommand {
	var out []DatasetCommand
	for _, cmd := range cs.Commands {
		if dc, ok := cmd.(DatasetCommand); ok {
			out = append(out, dc)
		}
	}
	return out
}

// InsertData is INSERT DATA { ... }.
type InsertData struct {
	Quads []QuadPattern
}

// DeleteData is DELETE DATA { ... }.
type DeleteData struct {
	Quads []QuadPattern
}

// DeleteWhere is DELETE WHERE { ... }. The quads double as the pattern.
type DeleteWhere struct {
	Quads      []QuadPattern
	Using      []rdf.IRI
	UsingNamed []rdf.IRI
}

// Modify is [WITH g] DELETE {..} INSERT {..} [USING ..] WHERE {..}.
type Modify struct {
	With       *rdf.IRI
	Delete     []QuadPattern
	Insert     []QuadPattern
	Using      []rdf.IRI
	UsingNamed []rdf.IRI
	Where      *GroupPattern
}

// GraphTargetKind selects what CLEAR and DROP act on.
type GraphTargetKind int

const (
	// TargetGraph is GRAPH <iri>.
	TargetGraph GraphTargetKind = iota
	// TargetDefault is DEFAULT.
	TargetDefault
	// TargetNamed is NAMED.
	TargetNamed
	// TargetAll is ALL.
	TargetAll
)

// GraphTarget is the operand of CLEAR and DROP.
type GraphTarget struct {
	Kind  GraphTargetKind
	Graph rdf.IRI
}

// Clear is CLEAR [SILENT] target; with Drop set it is DROP.
type Clear struct {
	Target GraphTarget
	Silent bool
	Drop   bool
}

// Create is CREATE [SILENT] GRAPH <iri>.
type Create struct {
	Graph  rdf.IRI
	Silent bool
}

// Name implements Command.
func (*InsertData) Name() string { return "INSERT DATA" }

// Name implements Command.
func (*DeleteData) Name() string { return "DELETE DATA" }

// Name implements Command.
func (*DeleteWhere) Name() string { return "DELETE WHERE" }

// Name implements Command.
func (*Modify) Name() string { return "MODIFY" }

// Name implements Command.
func (c *Clear) Name() string {
	if c.Drop {
		return "DROP"
	}
	return "CLEAR"
}

// Name implements Command.
func (*Create) Name() string { return "CREATE" }

// HasDatasetClause implements DatasetCommand. DELETE WHERE has no syntax for
// dataset clauses.
func (*DeleteWhere) HasDatasetClause() bool { return false }

// AddUsingGraph implements DatasetCommand.
func (d *DeleteWhere) AddUsingGraph(graph rdf.IRI) { d.Using = append(d.Using, graph) }

// AddUsingNamedGraph implements DatasetCommand.
func (d *DeleteWhere) AddUsingNamedGraph(graph rdf.IRI) {
	d.UsingNamed = append(d.UsingNamed, graph)
}

// HasDatasetClause implements DatasetCommand.
func (m *Modify) HasDatasetClause() bool {
	return m.With != nil || len(m.Using) > 0 || len(m.UsingNamed) > 0
}

// AddUsingGraph implements DatasetCommand.
func (m *Modify) AddUsingGraph(graph rdf.IRI) { m.Using = append(m.Using, graph) }

// AddUsingNamedGraph implements DatasetCommand.
func (m *Modify) AddUsingNamedGraph(graph rdf.IRI) { m.UsingNamed = append(m.UsingNamed, graph) }

// Pattern returns the group pattern the DELETE WHERE quads match: default
// graph triples first, then one GRAPH block per graph name.
func (d *DeleteWhere) Pattern() *GroupPattern {
	group := &GroupPattern{}
	var defaults []TriplePattern
	byGraph := make(map[Term][]TriplePattern)
	var order []Term
	for _, q := range d.Quads {
		if q.Graph.IsZero() {
			defaults = append(defaults, q.TriplePattern)
			continue
		}
		if _, ok := byGraph[q.Graph]; !ok {
			order = append(order, q.Graph)
		}
		byGraph[q.Graph] = append(byGraph[q.Graph], q.TriplePattern)
	}
	if len(defaults) > 0 {
		group.Elements = append(group.Elements, &BasicPattern{Triples: defaults})
	}
	for _, g := range order {
		group.Elements = append(group.Elements, &GraphPattern{
			Name:    g,
			Pattern: &GroupPattern{Elements: []Pattern{&BasicPattern{Triples: byGraph[g]}}},
		})
	}
	return group
}
