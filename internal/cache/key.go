package cache

import (
	"sort"
	"strings"
)

// Key builds "prefix:path...:k1=v1:k2=v2" with params sorted by name and
// empty values dropped, so parameter order never yields a distinct key.
func Key(prefix string, path []string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	parts := make([]string, 0, 1+len(path)+len(names))
	parts = append(parts, prefix)
	for _, p := range path {
		if p != "" {
			parts = append(parts, p)
		}
	}
	for _, k := range names {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, ":")
}

// ScopePattern matches every key under prefix:path, with or without params.
func ScopePattern(prefix string, path ...string) string {
	return Key(prefix, path, nil) + "*"
}
