package batch

import (
	"errors"
	"fmt"
	"strings"
)

// lookupIndex resolves a dependency id to the index of the operation it refers to. Ids
// take precedence over $index_<N> references.
func lookupIndex(byID map[string]int, total int, dep string) (int, bool) {
	if i, ok := byID[dep]; ok {
		return i, true
	}
	if i, ok := parseIndexRef(dep); ok && i < total {
		return i, true
	}

	return 0, false
}

func indexByID(ops []ResolvedOperation) map[string]int {
	byID := make(map[string]int, len(ops))
	for _, op := range ops {
		byID[op.ID] = op.Index
	}

	return byID
}

// findCycle returns the ids forming a dependency cycle, or nil if the graph is acyclic.
// Unknown dependencies are ignored here, they fail the operation at execution time.
// Uses depth-first search with coloring to detect back edges.
func findCycle(ops []ResolvedOperation) []string {
	byID := indexByID(ops)
	edges := make([][]int, len(ops))
	for _, op := range ops {
		for _, dep := range op.Dependencies {
			if j, ok := lookupIndex(byID, len(ops), dep); ok {
				edges[op.Index] = append(edges[op.Index], j)
			}
		}
	}

	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make([]int, len(ops))
	var stack []int
	var cycle []string

	var visit func(i int) bool
	visit = func(i int) bool {
		colors[i] = 1
		stack = append(stack, i)

		for _, j := range edges[i] {
			switch colors[j] {
			case 1:
				// Found a back edge, the cycle is the stack from j onwards.
				for k := len(stack) - 1; k >= 0; k-- {
					if stack[k] == j {
						for _, n := range stack[k:] {
							cycle = append(cycle, ops[n].ID)
						}

						break
					}
				}
				cycle = append(cycle, ops[j].ID)

				return true
			case 0:
				if visit(j) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		colors[i] = 2

		return false
	}

	for i := range ops {
		if colors[i] == 0 && visit(i) {
			return cycle
		}
	}

	return nil
}

// checkCycles returns an ErrDependencyCycle error naming the cycle, if there is one.
func checkCycles(ops []ResolvedOperation) error {
	if cycle := findCycle(ops); cycle != nil {
		return fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(cycle, " -> "))
	}

	return nil
}

// Validate normalizes ops and reports every unknown dependency and any dependency cycle
// without executing anything.
func Validate(ops []Operation) ([]ResolvedOperation, error) {
	resolved := Normalize(ops)
	byID := indexByID(resolved)

	var errs []error
	for _, op := range resolved {
		for _, dep := range op.Dependencies {
			if _, ok := lookupIndex(byID, len(resolved), dep); !ok {
				errs = append(errs, fmt.Errorf("operation %s: %w: %s", op.ID, ErrDependencyNotFound, dep))
			}
		}
	}
	if err := checkCycles(resolved); err != nil {
		errs = append(errs, err)
	}

	return resolved, errors.Join(errs...)
}
