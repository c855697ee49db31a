package mediatype

import (
	"mime"
	"sort"
	"strconv"
	"strings"
)

// Candidate is one entry of an Accept header.
type Candidate struct {
	Type     string
	Subtype  string
	Quality  float64
	Charset  string
	Position int
}

// MediaType returns "type/subtype".
func (c Candidate) MediaType() string {
	return c.Type + "/" + c.Subtype
}

// IsWildcard reports whether the candidate is "*/*" or "type/*".
func (c Candidate) IsWildcard() bool {
	return c.Subtype == "*"
}

// Matches reports whether a concrete MIME type satisfies the candidate.
func (c Candidate) Matches(mimeType string) bool {
	typ, sub, ok := strings.Cut(strings.ToLower(mimeType), "/")
	if !ok {
		return false
	}
	if c.Type == "*" {
		return true
	}
	if c.Type != typ {
		return false
	}
	return c.Subtype == "*" || c.Subtype == sub
}

// ParseAccept parses an Accept header into candidates ordered by descending
// quality, keeping header order among equal qualities. Malformed entries and
// entries with q=0 are dropped. A blank header accepts anything.
func ParseAccept(header string) []Candidate {
	if strings.TrimSpace(header) == "" {
		return []Candidate{{Type: "*", Subtype: "*", Quality: 1}}
	}

	var candidates []Candidate
	for i, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mediaType, params, err := mime.ParseMediaType(part)
		if err != nil {
			continue
		}
		typ, sub, ok := strings.Cut(mediaType, "/")
		if !ok || typ == "" || sub == "" || (typ == "*" && sub != "*") {
			continue
		}

		quality := 1.0
		if q, ok := params["q"]; ok {
			quality, err = strconv.ParseFloat(q, 64)
			if err != nil || quality < 0 || quality > 1 {
				continue
			}
		}
		if quality == 0 {
			continue
		}

		candidates = append(candidates, Candidate{
			Type:     typ,
			Subtype:  sub,
			Quality:  quality,
			Charset:  params["charset"],
			Position: i,
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Quality > candidates[b].Quality
	})
	return candidates
}
