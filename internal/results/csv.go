package results

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"github.com/conduit-lang/sparqld/internal/rdf"
)

// WriteCSV writes the result set in the SPARQL 1.1 CSV format. Terms are
// written as plain values, so datatypes and language tags are lost.
func WriteCSV(w io.Writer, rs *ResultSet) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if rs.IsBoolean() {
		if err := cw.Write([]string{"_askResult"}); err != nil {
			return err
		}
		if err := cw.Write([]string{boolString(*rs.Boolean)}); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}

	if err := cw.Write(rs.Variables); err != nil {
		return err
	}
	record := make([]string, len(rs.Variables))
	for _, row := range rs.Rows {
		for i, v := range rs.Variables {
			record[i] = csvValue(row[v])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTSV writes the result set in the SPARQL 1.1 TSV format, which keeps
// terms in their Turtle encoding.
func WriteTSV(w io.Writer, rs *ResultSet) error {
	bw := bufio.NewWriter(w)
	if rs.IsBoolean() {
		bw.WriteString("?_askResult\n" + boolString(*rs.Boolean) + "\n")
		return bw.Flush()
	}

	header := make([]string, len(rs.Variables))
	for i, v := range rs.Variables {
		header[i] = "?" + v
	}
	bw.WriteString(strings.Join(header, "\t") + "\n")

	fields := make([]string, len(rs.Variables))
	for _, row := range rs.Rows {
		for i, v := range rs.Variables {
			fields[i] = tsvValue(row[v])
		}
		bw.WriteString(strings.Join(fields, "\t") + "\n")
	}
	return bw.Flush()
}

func csvValue(term rdf.Term) string {
	switch value := term.(type) {
	case rdf.IRI:
		return value.Value
	case rdf.BlankNode:
		return "_:" + value.ID
	case rdf.Literal:
		return value.Lexical
	}
	return ""
}

func tsvValue(term rdf.Term) string {
	if term == nil {
		return ""
	}
	if lit, ok := term.(rdf.Literal); ok && lit.Lang == "" {
		switch lit.Datatype {
		case rdf.XSDInteger, rdf.XSDDecimal, rdf.XSDDouble, rdf.XSDBoolean:
			return lit.Lexical
		}
	}
	return rdf.FormatTerm(term)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
