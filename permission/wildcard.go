package permission

import (
	"errors"
	"strings"
)

const (
	wildcardToken  = "*"
	partDivider    = ":"
	subpartDivider = ","
)

// ErrInvalidPermission is returned when a permission string has no parts.
var ErrInvalidPermission = errors.New("invalid permission string")

// Wildcard is a parsed permission such as "user:list,edit:42".
//
// Parts are separated by ':' and sub-parts by ','. A '*' part matches any
// sub-part, and a permission with fewer parts implies every longer one it
// prefixes ("user" implies "user:list:42"). Matching is case-insensitive.
type Wildcard struct {
	parts []map[string]struct{}
}

// ParseWildcard parses s. Whitespace around parts and sub-parts is dropped.
func ParseWildcard(s string) (Wildcard, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Wildcard{}, ErrInvalidPermission
	}

	raw := strings.Split(strings.ToLower(s), partDivider)
	parts := make([]map[string]struct{}, 0, len(raw))
	for _, p := range raw {
		set := make(map[string]struct{})
		for _, sub := range strings.Split(p, subpartDivider) {
			sub = strings.TrimSpace(sub)
			if sub != "" {
				set[sub] = struct{}{}
			}
		}
		if len(set) == 0 {
			return Wildcard{}, ErrInvalidPermission
		}
		parts = append(parts, set)
	}
	return Wildcard{parts: parts}, nil
}

// MustParseWildcard is ParseWildcard that panics; for literals.
func MustParseWildcard(s string) Wildcard {
	w, err := ParseWildcard(s)
	if err != nil {
		panic(err)
	}
	return w
}

// Implies reports whether holding w grants other.
func (w Wildcard) Implies(other Wildcard) bool {
	for i, otherPart := range other.parts {
		// a shorter granted permission covers the whole subtree
		if i >= len(w.parts) {
			return true
		}
		part := w.parts[i]
		if _, ok := part[wildcardToken]; ok {
			continue
		}
		for sub := range otherPart {
			if _, ok := part[sub]; !ok {
				return false
			}
		}
	}

	for i := len(other.parts); i < len(w.parts); i++ {
		if _, ok := w.parts[i][wildcardToken]; !ok {
			return false
		}
	}
	return true
}

// Implies parses both strings and reports whether granted implies required.
// Unparseable input never implies anything.
func Implies(granted, required string) bool {
	g, err := ParseWildcard(granted)
	if err != nil {
		return false
	}
	r, err := ParseWildcard(required)
	if err != nil {
		return false
	}
	return g.Implies(r)
}
