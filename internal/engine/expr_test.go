package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conduit-lang/sparqld/internal/rdf"
)

func TestEffectiveBooleanValue(t *testing.T) {
	tests := []struct {
		name    string
		value   rdf.Term
		want    bool
		wantErr bool
	}{
		{"true", trueLit, true, false},
		{"false", falseLit, false, false},
		{"non-empty string", rdf.NewLiteral("x"), true, false},
		{"empty string", rdf.NewLiteral(""), false, false},
		{"zero", age("0"), false, false},
		{"number", rdf.Literal{Lexical: "0.5", Datatype: rdf.XSDDecimal}, true, false},
		{"malformed number", age("abc"), false, false},
		{"iri", rdf.IRI{Value: "urn:x"}, false, true},
		{"language string", rdf.NewLangLiteral("x", "en"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ebv(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumericLiteral(t *testing.T) {
	assert.Equal(t, "3", numericLiteral(3, rdf.XSDInteger).Lexical)
	assert.Equal(t, "1.5", numericLiteral(1.5, rdf.XSDDecimal).Lexical)
	assert.Equal(t, "2.0", numericLiteral(2, rdf.XSDDecimal).Lexical)
	assert.Equal(t, "1.5E+00", numericLiteral(1.5, rdf.XSDDouble).Lexical)
}

func TestArithmeticTypePromotion(t *testing.T) {
	v, err := arithmetic("/", age("3"), age("2"))
	assert.NoError(t, err)
	assert.Equal(t, rdf.Literal{Lexical: "1.5", Datatype: rdf.XSDDecimal}, v)

	_, err = arithmetic("/", age("3"), age("0"))
	assert.Error(t, err)

	_, err = arithmetic("+", age("3"), rdf.NewLiteral("x"))
	assert.Error(t, err)
}

func TestCompareTerms(t *testing.T) {
	assert.Less(t, compareTerms(nil, rdf.BlankNode{ID: "a"}), 0)
	assert.Less(t, compareTerms(rdf.BlankNode{ID: "a"}, rdf.IRI{Value: "urn:a"}), 0)
	assert.Less(t, compareTerms(rdf.IRI{Value: "urn:z"}, rdf.NewLiteral("a")), 0)
	assert.Less(t, compareTerms(age("9"), age("10")), 0)
	assert.Equal(t, 0, compareTerms(rdf.IRI{Value: "urn:a"}, rdf.IRI{Value: "urn:a"}))
}

func TestLangMatches(t *testing.T) {
	assert.True(t, langMatches("en-GB", "en"))
	assert.True(t, langMatches("EN", "en"))
	assert.True(t, langMatches("fr", "*"))
	assert.False(t, langMatches("", "*"))
	assert.False(t, langMatches("english", "en"))
}
