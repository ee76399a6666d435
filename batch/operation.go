package batch

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/smartcontractkit/batchops/value"
)

// indexRefPrefix prefixes the synthetic dependency ids that refer to an operation by its
// position in the input, e.g. "$index_0".
const indexRefPrefix = "$index_"

// indexTokenPattern matches $<N> anywhere in a serialized operation.
var indexTokenPattern = regexp.MustCompile(`\$(\d+)`)

// Operation is a single unit of work submitted to the executor.
//
// Type is either "<module>.<method>", dispatched through a Registry, or a bare verb such
// as "create", "update" or "delete", sent to Endpoint through a Requester.
type Operation struct {
	ID           string      `json:"id,omitempty" yaml:"id,omitempty"`
	Type         string      `json:"type" yaml:"type"`
	Endpoint     string      `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	ResourceType string      `json:"resourceType,omitempty" yaml:"resourceType,omitempty"`
	Data         value.Value `json:"data" yaml:"data"`
	Dependencies []string    `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// DependsOn is an alias of Dependencies, both are merged during normalization.
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// ResolvedOperation is an Operation after normalization.
type ResolvedOperation struct {
	Operation

	// Index is the position of the operation in the submitted list. It is never reassigned.
	Index int `json:"index"`
	// Dependencies is the canonical dependency list: explicit dependencies, then dependsOn,
	// then inferred $index_<N> references, without duplicates. It shadows the raw
	// Operation.Dependencies.
	Dependencies []string `json:"dependencies,omitempty"`
	// ResolvedData is the payload after reference substitution. It is only set on
	// operations that were dispatched successfully.
	ResolvedData *value.Value `json:"resolvedData,omitempty"`
}

// IndexRef returns the synthetic dependency id referring to the operation at index i.
func IndexRef(i int) string {
	return indexRefPrefix + strconv.Itoa(i)
}

// parseIndexRef returns the index encoded in a $index_<N> dependency id.
func parseIndexRef(dep string) (int, bool) {
	rest, ok := strings.CutPrefix(dep, indexRefPrefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}

	return i, true
}

// Normalize assigns ids to operations lacking one and computes their canonical dependency
// lists. The output has the same length and order as ops.
func Normalize(ops []Operation) []ResolvedOperation {
	out := make([]ResolvedOperation, len(ops))
	for i, op := range ops {
		if op.ID == "" {
			op.ID = fmt.Sprintf("op_%d", i)
		}

		deps := make([]string, 0, len(op.Dependencies)+len(op.DependsOn))
		deps = append(deps, op.Dependencies...)
		deps = append(deps, op.DependsOn...)
		deps = append(deps, inferIndexDependencies(op, i)...)

		out[i] = ResolvedOperation{
			Operation:    op,
			Index:        i,
			Dependencies: lo.Uniq(deps),
		}
	}

	return out
}

// inferIndexDependencies scans the serialized operation for $<N> tokens with N lower than
// the operation's own index.
func inferIndexDependencies(op Operation, index int) []string {
	body, err := json.Marshal(op)
	if err != nil {
		return nil
	}

	var refs []int
	for _, m := range indexTokenPattern.FindAllStringSubmatch(string(body), -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n >= index {
			continue
		}
		refs = append(refs, n)
	}
	refs = lo.Uniq(refs)
	sort.Ints(refs)

	return lo.Map(refs, func(n int, _ int) string { return IndexRef(n) })
}
