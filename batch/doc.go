/*
Package batch executes a list of possibly interdependent remote operations with bounded
concurrency.

# Batch execution

The engine enables:
- Submitting an ordered list of operations that reference each other's future results
- Running independent operations concurrently under a global concurrency ceiling
- Continuing past failures, or failing fast and rolling back what already succeeded

# Core Components

Normalizer:
  - Assigns op_<index> ids to operations that lack one
  - Merges explicit dependencies with those inferred from $<N> index tokens

Resolver:
  - Substitutes $<N>.<path> and $<opId>.<path> tokens with values from completed results
  - Leaves unmatched tokens in place, it never fails

Executor:
  - Launches every operation eagerly and gates each on the settlement of its dependencies
  - Bounds in-flight dispatches with a FIFO permit pool
  - Dispatches module.method operations through a Registry and verb operations through a Requester

Summary:
  - Collects results in completion order with counts, success rate and duration

Rollback:
  - On a fail-fast rejection, invokes the delete inverses of succeeded create or add
    operations in reverse completion order, best-effort

# Basic Usage

	registry := batch.NewRegistry()
	registry.Register("contacts", "createContact", createContact)
	registry.Register("contacts", "deleteContact", deleteContact)

	exec := batch.NewExecutor(lggr, batch.WithRegistry(registry), batch.WithRequester(client))
	summary, err := exec.Execute(ctx, []batch.Operation{
		{ID: "parent", Type: "create", Endpoint: "/resources", Data: value.MustFromAny(map[string]any{"name": "Parent"})},
		{Type: "contacts.createContact", Data: value.MustFromAny(map[string]any{"parent_id": "$parent.id"}), DependsOn: []string{"parent"}},
	}, batch.WithMaxConcurrency(2))
*/
package batch
