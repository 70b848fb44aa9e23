package estest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// matches evaluates the small query subset the fake understands: match_all,
// query_string with "field:pattern" terms and wildcard.
func matches(query map[string]json.RawMessage, src map[string]any) (bool, error) {
	if len(query) == 0 {
		return true, nil
	}
	if len(query) != 1 {
		return false, fmt.Errorf("[query] malformed, expected a single clause")
	}

	for kind, raw := range query {
		switch kind {
		case "match_all":
			return true, nil
		case "query_string":
			var qs struct {
				Query        string `json:"query"`
				DefaultField string `json:"default_field"`
			}
			if err := json.Unmarshal(raw, &qs); err != nil {
				return false, fmt.Errorf("[query_string] malformed: %w", err)
			}
			if qs.Query == "" {
				return false, fmt.Errorf("[query_string] requires 'query' to be set")
			}
			field, pattern := qs.DefaultField, qs.Query
			if f, p, ok := strings.Cut(qs.Query, ":"); ok {
				field, pattern = f, p
			}
			return fieldMatches(src, field, pattern), nil
		case "wildcard":
			var clause map[string]json.RawMessage
			if err := json.Unmarshal(raw, &clause); err != nil || len(clause) != 1 {
				return false, fmt.Errorf("[wildcard] query malformed")
			}
			for field, v := range clause {
				var opts struct {
					Value string `json:"value"`
				}
				if err := json.Unmarshal(v, &opts); err != nil || opts.Value == "" {
					var bare string
					if err := json.Unmarshal(v, &bare); err != nil {
						return false, fmt.Errorf("[wildcard] query malformed for field [%s]", field)
					}
					opts.Value = bare
				}
				return fieldMatches(src, field, opts.Value), nil
			}
		default:
			return false, fmt.Errorf("unknown query [%s]", kind)
		}
	}
	return false, nil
}

// fieldMatches compares case-insensitively. An empty or "*" field searches
// every top-level value.
func fieldMatches(src map[string]any, field, pattern string) bool {
	pattern = strings.ToLower(pattern)
	if field == "" || field == "*" {
		for _, v := range src {
			if glob(pattern, strings.ToLower(fmt.Sprint(v))) {
				return true
			}
		}
		return false
	}
	v, ok := src[field]
	if !ok {
		return false
	}
	return glob(pattern, strings.ToLower(fmt.Sprint(v)))
}

// glob supports '*' and '?'.
func glob(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			pattern = strings.TrimLeft(pattern, "*")
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if glob(pattern, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if s == "" {
				return false
			}
			pattern, s = pattern[1:], s[1:]
		default:
			if s == "" || s[0] != pattern[0] {
				return false
			}
			pattern, s = pattern[1:], s[1:]
		}
	}
	return s == ""
}
