package results

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/conduit-lang/sparqld/internal/rdf"
)

const xmlNamespace = "http://www.w3.org/2005/sparql-results#"

// WriteXML writes the result set in the SPARQL Query Results XML Format.
func WriteXML(w io.Writer, rs *ResultSet) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	bw.WriteString(`<sparql xmlns="` + xmlNamespace + `">` + "\n")
	bw.WriteString("  <head>\n")
	for _, v := range rs.Variables {
		fmt.Fprintf(bw, "    <variable name=\"%s\"/>\n", escape(v))
	}
	bw.WriteString("  </head>\n")

	if rs.IsBoolean() {
		fmt.Fprintf(bw, "  <boolean>%s</boolean>\n", strconv.FormatBool(*rs.Boolean))
		bw.WriteString("</sparql>\n")
		return bw.Flush()
	}

	bw.WriteString("  <results>\n")
	for _, row := range rs.Rows {
		bw.WriteString("    <result>\n")
		for _, v := range rs.Variables {
			term, ok := row[v]
			if !ok || term == nil {
				continue
			}
			fmt.Fprintf(bw, "      <binding name=\"%s\">%s</binding>\n", escape(v), xmlTerm(term))
		}
		bw.WriteString("    </result>\n")
	}
	bw.WriteString("  </results>\n")
	bw.WriteString("</sparql>\n")
	return bw.Flush()
}

func xmlTerm(term rdf.Term) string {
	switch value := term.(type) {
	case rdf.IRI:
		return "<uri>" + escape(value.Value) + "</uri>"
	case rdf.BlankNode:
		return "<bnode>" + escape(value.ID) + "</bnode>"
	case rdf.Literal:
		switch {
		case value.Lang != "":
			return fmt.Sprintf(`<literal xml:lang="%s">%s</literal>`, escape(value.Lang), escape(value.Lexical))
		case value.Datatype.Value != "" && value.Datatype != rdf.XSDString:
			return fmt.Sprintf(`<literal datatype="%s">%s</literal>`, escape(value.Datatype.Value), escape(value.Lexical))
		default:
			return "<literal>" + escape(value.Lexical) + "</literal>"
		}
	}
	return ""
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
