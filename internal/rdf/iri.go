package rdf

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateAbsoluteIRI checks that s is an absolute IRI: it must carry a scheme
// and must not contain whitespace, control characters or characters that are
// excluded from IRI references.
func ValidateAbsoluteIRI(s string) error {
	if s == "" {
		return fmt.Errorf("empty IRI")
	}
	for i, r := range s {
		if r <= 0x20 || r == 0x7f {
			return fmt.Errorf("invalid character at position %d in IRI %q", i, s)
		}
		if strings.ContainsRune(`<>"{}|\^`+"`", r) {
			return fmt.Errorf("invalid character %q in IRI %q", r, s)
		}
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid IRI syntax: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("IRI %q is not absolute", s)
	}
	first := parsed.Scheme[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return fmt.Errorf("scheme must start with a letter: %s", s)
	}
	return nil
}

// ResolveIRI resolves ref against base. An empty base leaves ref unchanged.
func ResolveIRI(base, ref string) (string, error) {
	if base == "" {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base IRI %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid IRI %q: %w", ref, err)
	}
	if r.IsAbs() {
		return ref, nil
	}
	return b.ResolveReference(r).String(), nil
}
