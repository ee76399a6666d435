package batch

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/batchops/value"
)

func Test_summarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		total          int
		give           []bool
		wantSuccessful int
		wantFailed     int
		wantRate       float64
	}{
		{name: "empty", total: 0, give: nil, wantRate: 0},
		{name: "all succeeded", total: 2, give: []bool{true, true}, wantSuccessful: 2, wantRate: 1},
		{name: "all failed", total: 2, give: []bool{false, false}, wantFailed: 2, wantRate: 0},
		{name: "mixed", total: 4, give: []bool{true, false, true, true}, wantSuccessful: 3, wantFailed: 1, wantRate: 0.75},
		{name: "partial log", total: 5, give: []bool{true, false}, wantSuccessful: 1, wantFailed: 1, wantRate: 0.5},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			results := make([]Result, len(tt.give))
			for i, ok := range tt.give {
				results[i] = Result{Index: i, Success: ok}
			}

			got := summarize("batch-1", tt.total, results, 1500*time.Millisecond)
			assert.Equal(t, tt.total, got.Total)
			assert.Equal(t, tt.wantSuccessful, got.Successful)
			assert.Equal(t, tt.wantFailed, got.Failed)
			assert.Equal(t, len(tt.give), got.Successful+got.Failed)
			assert.InDelta(t, tt.wantRate, got.SuccessRate, 1e-9)
			assert.GreaterOrEqual(t, got.SuccessRate, 0.0)
			assert.LessOrEqual(t, got.SuccessRate, 1.0)
			assert.Equal(t, int64(1500), got.DurationMs())
		})
	}
}

func TestSummary_MarshalJSON(t *testing.T) {
	t.Parallel()

	s := summarize("batch-1", 2, []Result{
		{
			Index:     0,
			Operation: ResolvedOperation{Operation: Operation{ID: "op_0", Type: "users.create"}, Index: 0},
			Success:   true,
			Data:      value.MustFromAny(map[string]any{"id": "u1"}),
		},
		{
			Index:     1,
			Operation: ResolvedOperation{Operation: Operation{ID: "op_1", Type: "users.create"}, Index: 1},
			Err:       errors.New("boom"),
		},
	}, 42*time.Millisecond)

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "batch-1", got["batchId"])
	assert.InDelta(t, 2, got["total"], 0)
	assert.InDelta(t, 1, got["successful"], 0)
	assert.InDelta(t, 1, got["failed"], 0)
	assert.InDelta(t, 0.5, got["successRate"], 0)
	assert.InDelta(t, 42, got["duration"], 0)
	assert.NotContains(t, got, "rollback")

	results, ok := got["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 2)
	failed, ok := results[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"message": "boom"}, failed["error"])
	assert.NotContains(t, failed, "data")
}

func TestResult_JSON(t *testing.T) {
	t.Parallel()

	data := value.MustFromAny(map[string]any{"parentId": "p1"})
	give := Result{
		Index: 3,
		Operation: ResolvedOperation{
			Operation:    Operation{ID: "child", Type: "users.create", Data: value.MustFromAny(map[string]any{"parentId": "$0.id"})},
			Index:        3,
			Dependencies: []string{"$index_0"},
			ResolvedData: &data,
		},
		Success: true,
		Data:    value.MustFromAny(map[string]any{"id": "c1"}),
	}

	b, err := json.Marshal(give)
	require.NoError(t, err)

	var got Result
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 3, got.Index)
	assert.True(t, got.Success)
	assert.NoError(t, got.Err)
	assert.Equal(t, "child", got.Operation.ID)
	assert.Equal(t, []string{"$index_0"}, got.Operation.Dependencies)
	require.NotNil(t, got.Operation.ResolvedData)
	assert.True(t, data.Equal(*got.Operation.ResolvedData))
	assert.True(t, give.Data.Equal(got.Data))

	failed := Result{Index: 1, Err: errors.New("nope")}
	b, err = json.Marshal(failed)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &got))
	assert.False(t, got.Success)
	assert.EqualError(t, got.Err, "nope")
	assert.True(t, got.Data.IsNull())
}

func Test_resultLog(t *testing.T) {
	t.Parallel()

	l := newResultLog(3)
	assert.NoError(t, l.firstError())

	first := errors.New("first")
	l.add(Result{Index: 2, Success: true})
	l.add(Result{Index: 0, Err: first})
	l.add(Result{Index: 1, Err: errors.New("second")})

	snap := l.snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []int{2, 0, 1}, []int{snap[0].Index, snap[1].Index, snap[2].Index})
	assert.Equal(t, first, l.firstError())

	// Snapshots are copies.
	snap[0].Index = 99
	assert.Equal(t, 2, l.snapshot()[0].Index)
}
