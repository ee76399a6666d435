package ops

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/smartcontractkit/batchops/batch"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func validateOutput(output string) error {
	switch output {
	case outputTable, outputJSON:
		return nil
	default:
		return fmt.Errorf("invalid output format %q: use %s or %s", output, outputTable, outputJSON)
	}
}

// writeSummary renders the summary of a batch as a table or as JSON.
func writeSummary(w io.Writer, output string, summary batch.Summary) error {
	if output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(summary)
	}

	// Results are shown in input order.
	results := make([]batch.Result, len(summary.Results))
	copy(results, summary.Results)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status, detail := "succeeded", r.Data.String()
		if !r.Success {
			status, detail = "failed", r.Err.Error()
		}
		rows = append(rows, []string{strconv.Itoa(r.Index), r.Operation.ID, r.Operation.Type, status, detail})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "ID", "Type", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()

	if len(summary.Rollback) > 0 {
		rollback := make([][]string, 0, len(summary.Rollback))
		for _, a := range summary.Rollback {
			rollback = append(rollback, []string{a.OperationID, a.Method, string(a.Status), a.Reason})
		}

		rt := tablewriter.NewWriter(w)
		rt.SetHeader([]string{"Operation", "Inverse", "Rollback", "Reason"})
		rt.SetAutoWrapText(false)
		rt.AppendBulk(rollback)
		rt.Render()
	}

	_, err := fmt.Fprintf(w, "Batch %s: %d/%d succeeded, %d failed (%.1f%%) in %dms\n",
		summary.BatchID, summary.Successful, summary.Total, summary.Failed,
		summary.SuccessRate*100, summary.DurationMs())

	return err
}

// writePlan renders normalized operations and their canonical dependencies.
func writePlan(w io.Writer, ops []batch.ResolvedOperation) {
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		target := op.Endpoint
		if target == "" {
			target = "-"
		}
		deps := strings.Join(op.Dependencies, ", ")
		if deps == "" {
			deps = "-"
		}
		rows = append(rows, []string{strconv.Itoa(op.Index), op.ID, op.Type, target, deps})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "ID", "Type", "Endpoint", "Depends on"})
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{
		Left:   false,
		Right:  false,
		Top:    true,
		Bottom: true,
	})
	table.AppendBulk(rows)
	table.Render()
}
