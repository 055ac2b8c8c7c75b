package core

// validation.go checks a file's header against its column contract.
//
// Headers are normalized first (lower case, spaces to underscores, artifacts
// stripped), then aliases are mapped to canonical names. Validation is
// exhaustive: the error lists every missing, unexpected and unnamed column.

import (
	"sort"
	"strings"
)

// NormalizeHeader lower-cases a header cell and replaces spaces with underscores.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(CleanCell(h))
	return strings.Join(strings.Fields(h), "_")
}

// CanonicalHeader normalizes every header cell and applies aliases.
func CanonicalHeader(header []string, aliases map[string]string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		name := NormalizeHeader(h)
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		out[i] = name
	}
	return out
}

// MakeHeaderIndex maps canonical column names to their position.
// The first occurrence of a duplicated column wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		if h == "" {
			continue
		}
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// ValidateColumns checks a canonical header against required and optional
// column sets. It returns nil or a *SchemaError naming every problem.
func ValidateColumns(kind FileKind, file string, header, required, optional []string) error {
	present := make(map[string]bool, len(header))
	var unnamed []int
	for i, h := range header {
		if h == "" {
			unnamed = append(unnamed, i+1)
			continue
		}
		present[h] = true
	}

	allowed := make(map[string]bool, len(required)+len(optional))
	var missing []string
	for _, c := range required {
		allowed[c] = true
		if !present[c] {
			missing = append(missing, c)
		}
	}
	for _, c := range optional {
		allowed[c] = true
	}

	var unexpected []string
	for c := range present {
		if !allowed[c] {
			unexpected = append(unexpected, c)
		}
	}
	sort.Strings(unexpected)

	if len(missing) == 0 && len(unexpected) == 0 && len(unnamed) == 0 {
		return nil
	}
	return &SchemaError{Kind: kind, File: file, Missing: missing, Unexpected: unexpected, Unnamed: unnamed}
}
