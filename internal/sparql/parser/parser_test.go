package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/sparqld/internal/rdf"
	"github.com/conduit-lang/sparqld/internal/sparql/ast"
)

const ex = "http://example.org/"

func TestParseSelect(t *testing.T) {
	q, err := ParseQuery(`PREFIX ex: <http://example.org/>
SELECT DISTINCT ?name ?age
FROM <http://example.org/g1>
FROM NAMED <http://example.org/g2>
WHERE {
  ?person a ex:Person ;
          ex:name ?name .
  OPTIONAL { ?person ex:age ?age }
  FILTER (?age > 18 || !BOUND(?age))
}
ORDER BY DESC(?age) ?name
LIMIT 10 OFFSET 5`)
	require.NoError(t, err)

	assert.Equal(t, ast.FormSelect, q.Form)
	assert.True(t, q.Distinct)
	assert.Equal(t, []string{"name", "age"}, q.Variables)
	assert.Equal(t, []rdf.IRI{{Value: ex + "g1"}}, q.DefaultGraphs)
	assert.Equal(t, []rdf.IRI{{Value: ex + "g2"}}, q.NamedGraphs)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 5, q.Offset)

	require.Len(t, q.Where.Elements, 3)
	bgp, ok := q.Where.Elements[0].(*ast.BasicPattern)
	require.True(t, ok)
	require.Len(t, bgp.Triples, 2)
	assert.Equal(t, ast.Constant(rdf.RDFType), bgp.Triples[0].P)
	assert.Equal(t, ast.Constant(rdf.IRI{Value: ex + "Person"}), bgp.Triples[0].O)

	_, ok = q.Where.Elements[1].(*ast.OptionalPattern)
	assert.True(t, ok)

	filter, ok := q.Where.Elements[2].(*ast.FilterPattern)
	require.True(t, ok)
	or, ok := filter.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "||", or.Op)

	require.Len(t, q.OrderBy, 2)
	assert.True(t, q.OrderBy[0].Descending)
	assert.False(t, q.OrderBy[1].Descending)
}

func TestParseSelectStar(t *testing.T) {
	q, err := ParseQuery(`SELECT * WHERE { ?s ?p ?o . [] <urn:p> ?x }`)
	require.NoError(t, err)
	assert.True(t, q.Star)
	assert.Equal(t, -1, q.Limit)
	assert.Equal(t, []string{"s", "p", "o", "x"}, q.ProjectedVariables())
}

func TestParseAsk(t *testing.T) {
	q, err := ParseQuery(`ASK { <urn:a> <urn:b> "c" }`)
	require.NoError(t, err)
	assert.Equal(t, ast.FormAsk, q.Form)
}

func TestParseConstruct(t *testing.T) {
	q, err := ParseQuery(`PREFIX ex: <http://example.org/>
CONSTRUCT { ?s ex:knows _:b . _:b ex:name "x" } WHERE { ?s ex:p ?o }`)
	require.NoError(t, err)
	assert.Equal(t, ast.FormConstruct, q.Form)
	require.Len(t, q.Template, 2)
	assert.Equal(t, ast.Constant(rdf.BlankNode{ID: "b"}), q.Template[0].O)
}

func TestParseConstructWhere(t *testing.T) {
	q, err := ParseQuery(`CONSTRUCT WHERE { ?s <urn:p> ?o }`)
	require.NoError(t, err)
	require.Len(t, q.Template, 1)
	require.Len(t, q.Where.Elements, 1)
}

func TestParseDescribe(t *testing.T) {
	q, err := ParseQuery(`DESCRIBE <urn:x> ?y WHERE { ?y <urn:p> <urn:x> }`)
	require.NoError(t, err)
	assert.Equal(t, ast.FormDescribe, q.Form)
	assert.Len(t, q.Describe, 2)

	q, err = ParseQuery(`DESCRIBE <urn:x>`)
	require.NoError(t, err)
	assert.Empty(t, q.Where.Elements)
}

func TestParseUnionAndGraph(t *testing.T) {
	q, err := ParseQuery(`SELECT ?x WHERE {
  { ?x <urn:p> 1 } UNION { ?x <urn:q> 2.5 } UNION { ?x <urn:r> -3 }
  GRAPH ?g { ?x <urn:s> true }
}`)
	require.NoError(t, err)
	require.Len(t, q.Where.Elements, 2)

	union, ok := q.Where.Elements[0].(*ast.UnionPattern)
	require.True(t, ok)
	assert.Len(t, union.Alternatives, 3)

	third := union.Alternatives[2].Elements[0].(*ast.BasicPattern)
	assert.Equal(t, ast.Constant(rdf.Literal{Lexical: "-3", Datatype: rdf.XSDInteger}), third.Triples[0].O)

	graph, ok := q.Where.Elements[1].(*ast.GraphPattern)
	require.True(t, ok)
	assert.Equal(t, ast.Variable("g"), graph.Name)
}

func TestParseLiterals(t *testing.T) {
	q, err := ParseQuery(`PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
SELECT * WHERE { ?s ?p "a"@en, "1"^^xsd:integer, 'b', 1.0e0 }`)
	require.NoError(t, err)
	bgp := q.Where.Elements[0].(*ast.BasicPattern)
	require.Len(t, bgp.Triples, 4)
	assert.Equal(t, rdf.NewLangLiteral("a", "en"), bgp.Triples[0].O.Value)
	assert.Equal(t, rdf.NewTypedLiteral("1", rdf.XSDInteger), bgp.Triples[1].O.Value)
	assert.Equal(t, rdf.NewLiteral("b"), bgp.Triples[2].O.Value)
	assert.Equal(t, rdf.Literal{Lexical: "1.0e0", Datatype: rdf.XSDDouble}, bgp.Triples[3].O.Value)
}

func TestParseCollection(t *testing.T) {
	q, err := ParseQuery(`SELECT ?s WHERE { ?s <urn:list> (1 2) }`)
	require.NoError(t, err)
	bgp := q.Where.Elements[0].(*ast.BasicPattern)
	// two cells of rdf:first/rdf:rest plus the link from ?s
	assert.Len(t, bgp.Triples, 5)
	assert.Equal(t, []string{"s"}, ast.PatternVariables(q.Where))
}

func TestParseBase(t *testing.T) {
	q, err := ParseQuery(`BASE <http://example.org/base/> SELECT ?s WHERE { ?s <rel> <../up> }`)
	require.NoError(t, err)
	bgp := q.Where.Elements[0].(*ast.BasicPattern)
	assert.Equal(t, ast.Constant(rdf.IRI{Value: "http://example.org/base/rel"}), bgp.Triples[0].P)
	assert.Equal(t, ast.Constant(rdf.IRI{Value: "http://example.org/up"}), bgp.Triples[0].O)
}

func TestParseQueryErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"garbage", "this is not sparql"},
		{"undefined prefix", "SELECT * WHERE { ?s ex:p ?o }"},
		{"unclosed group", "SELECT * WHERE { ?s ?p ?o"},
		{"no projection", "SELECT WHERE { ?s ?p ?o }"},
		{"trailing input", "ASK { } ASK { }"},
		{"unknown function", "SELECT * WHERE { ?s ?p ?o FILTER(FOO(?o)) }"},
		{"bad arity", "SELECT * WHERE { ?s ?p ?o FILTER(REGEX(?o)) }"},
		{"lex error", `SELECT * WHERE { ?s ?p "open }`},
		{"update text", "INSERT DATA { <urn:a> <urn:b> <urn:c> }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(tt.query)
			require.Error(t, err)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := ParseQuery("SELECT * WHERE { ?s ex:p ?o }")
	require.Error(t, err)
	assert.Equal(t, "Parse error at 1:21: Undefined prefix 'ex' (near 'ex:p')", err.Error())
}

func TestParseInsertDeleteData(t *testing.T) {
	cs, err := ParseUpdate(`PREFIX ex: <http://example.org/>
INSERT DATA { ex:a ex:b "c" . GRAPH ex:g { ex:a ex:b _:x } } ;
DELETE DATA { ex:a ex:b "old" }`)
	require.NoError(t, err)
	require.Len(t, cs.Commands, 2)

	insert, ok := cs.Commands[0].(*ast.InsertData)
	require.True(t, ok)
	require.Len(t, insert.Quads, 2)
	assert.True(t, insert.Quads[0].Graph.IsZero())
	assert.Equal(t, ast.Constant(rdf.IRI{Value: ex + "g"}), insert.Quads[1].Graph)
	assert.Equal(t, ast.Constant(rdf.BlankNode{ID: "x"}), insert.Quads[1].O)

	_, ok = cs.Commands[1].(*ast.DeleteData)
	assert.True(t, ok)
	assert.Empty(t, cs.DatasetCommands())
}

func TestParseModify(t *testing.T) {
	cs, err := ParseUpdate(`WITH <urn:g>
DELETE { ?s <urn:p> ?o }
INSERT { ?s <urn:p> "new" }
USING <urn:u1> USING NAMED <urn:u2>
WHERE { ?s <urn:p> ?o }`)
	require.NoError(t, err)
	require.Len(t, cs.Commands, 1)

	m, ok := cs.Commands[0].(*ast.Modify)
	require.True(t, ok)
	require.NotNil(t, m.With)
	assert.Equal(t, "urn:g", m.With.Value)
	assert.Len(t, m.Delete, 1)
	assert.Len(t, m.Insert, 1)
	assert.Equal(t, []rdf.IRI{{Value: "urn:u1"}}, m.Using)
	assert.Equal(t, []rdf.IRI{{Value: "urn:u2"}}, m.UsingNamed)
	assert.True(t, m.HasDatasetClause())
	assert.Len(t, cs.DatasetCommands(), 1)
}

func TestParseInsertWhereWithoutDataset(t *testing.T) {
	cs, err := ParseUpdate(`INSERT { ?s <urn:q> ?o } WHERE { ?s <urn:p> ?o }`)
	require.NoError(t, err)
	m := cs.Commands[0].(*ast.Modify)
	assert.False(t, m.HasDatasetClause())
	assert.Nil(t, m.Delete)
}

func TestParseDeleteWhere(t *testing.T) {
	cs, err := ParseUpdate(`DELETE WHERE { ?s <urn:p> ?o . GRAPH <urn:g> { ?s <urn:q> ?o } }`)
	require.NoError(t, err)
	dw, ok := cs.Commands[0].(*ast.DeleteWhere)
	require.True(t, ok)
	assert.Len(t, dw.Quads, 2)
	assert.False(t, dw.HasDatasetClause())
	assert.Len(t, dw.Pattern().Elements, 2)
}

func TestParseGraphManagement(t *testing.T) {
	cs, err := ParseUpdate(`CLEAR SILENT GRAPH <urn:g>; DROP ALL; CLEAR DEFAULT; DROP NAMED; CREATE GRAPH <urn:h>`)
	require.NoError(t, err)
	require.Len(t, cs.Commands, 5)

	cleared := cs.Commands[0].(*ast.Clear)
	assert.True(t, cleared.Silent)
	assert.Equal(t, ast.TargetGraph, cleared.Target.Kind)
	assert.Equal(t, "CLEAR", cleared.Name())

	drop := cs.Commands[1].(*ast.Clear)
	assert.Equal(t, ast.TargetAll, drop.Target.Kind)
	assert.Equal(t, "DROP", drop.Name())

	assert.Equal(t, ast.TargetDefault, cs.Commands[2].(*ast.Clear).Target.Kind)
	assert.Equal(t, ast.TargetNamed, cs.Commands[3].(*ast.Clear).Target.Kind)
	assert.Equal(t, "urn:h", cs.Commands[4].(*ast.Create).Graph.Value)
}

func TestParseUpdateErrors(t *testing.T) {
	tests := []struct {
		name   string
		update string
	}{
		{"variable in data", "INSERT DATA { ?s <urn:p> <urn:o> }"},
		{"missing where", "DELETE { ?s ?p ?o }"},
		{"load unsupported", "LOAD <urn:doc>"},
		{"missing separator", "CLEAR ALL CLEAR ALL"},
		{"query text", "SELECT * WHERE { ?s ?p ?o }"},
		{"bad clear target", "CLEAR <urn:g>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUpdate(tt.update)
			assert.Error(t, err)
		})
	}
}

func TestSPARQLAdapter(t *testing.T) {
	var p SPARQL
	_, err := p.ParseQuery("ASK {}")
	assert.NoError(t, err)
	_, err = p.ParseUpdate("CLEAR ALL")
	assert.NoError(t, err)
}
