package batch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/smartcontractkit/batchops/value"
)

// refPattern matches $<N>.<path> (e.g. $0.id or $2.data.items.0.name) and $<opId>.<path>
// (e.g. $op1.id or $create-parent.data.created-at). Path segments may contain hyphens.
var refPattern = regexp.MustCompile(`\$(?:(\d+)|([A-Za-z_][\w-]*))\.([\w-]+(?:\.[\w-]+)*)`)

// Responses are not guaranteed to follow one schema, so an "id" reference tries these
// locations in order.
var (
	indexIDPaths = [][]string{{"id"}, {"data", "id"}}
	namedIDPaths = [][]string{{"id"}, {"data", "id"}, {"result", "id"}}
)

// Resolve returns a copy of v with every reference token in its strings replaced by the
// referenced value from completed. Tokens that cannot be resolved are left as they are.
func Resolve(v value.Value, completed []Result) value.Value {
	return value.Transform(v, func(s string) string {
		return ResolveString(s, completed)
	})
}

// ResolveString substitutes the reference tokens found in s.
func ResolveString(s string, completed []Result) string {
	if !strings.Contains(s, "$") {
		return s
	}

	// A single pass, so substituted values are never scanned for tokens again.
	return refPattern.ReplaceAllStringFunc(s, func(token string) string {
		m := refPattern.FindStringSubmatch(token)
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return token
			}
			for _, r := range completed {
				if r.Index == n {
					return lookupReference(r, m[3], indexIDPaths, token)
				}
			}

			return token
		}

		for _, r := range completed {
			if r.Operation.ID == m[2] {
				return lookupReference(r, m[3], namedIDPaths, token)
			}
		}

		return token
	})
}

// lookupReference resolves path against the success payload of r, returning token when
// nothing is found.
func lookupReference(r Result, path string, idPaths [][]string, token string) string {
	if !r.Success {
		return token
	}

	if path == "id" {
		for _, p := range idPaths {
			if v, ok := r.Data.Lookup(p...); ok && !v.IsNull() {
				return v.String()
			}
		}

		return token
	}

	if v, ok := r.Data.Lookup(strings.Split(path, ".")...); ok {
		return v.String()
	}

	return token
}
