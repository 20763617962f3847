package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/Hari-1410/H4shQ4x-2026/internal/service"
)

type jsonOutcome struct {
	Batch      string `json:"batch"`
	Error      string `json:"error,omitempty"`
	Assessment any    `json:"assessment,omitempty"`
}

func writeJSON(w io.Writer, outcomes []service.BatchOutcome) error {
	out := make([]jsonOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		entry := jsonOutcome{Batch: o.Name}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		} else {
			entry.Assessment = o.Assessment
		}
		out = append(out, entry)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// renderOutcomes prints a batch summary table followed by one flagged-account
// table per successful batch.
func renderOutcomes(w io.Writer, outcomes []service.BatchOutcome) {
	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Batch", "Transactions", "Flagged", "Score", "Level", "Error"})
	summary.SetAutoWrapText(false)
	for _, o := range outcomes {
		if o.Err != nil {
			summary.Append([]string{o.Name, "-", "-", "-", "-", o.Err.Error()})
			continue
		}
		a := o.Assessment
		summary.Append([]string{
			o.Name,
			strconv.Itoa(a.TransactionCount),
			strconv.Itoa(len(a.Accounts)),
			formatScore(a.BatchRiskScore),
			string(a.BatchRiskLevel),
			"",
		})
	}
	summary.Render()

	for _, o := range outcomes {
		if o.Err != nil || len(o.Assessment.Accounts) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (analysis %s)\n", o.Name, o.Assessment.AnalysisID)

		accounts := tablewriter.NewWriter(w)
		accounts.SetHeader([]string{"Account", "In", "Out", "Raw", "Risk", "Floor", "Reasons"})
		accounts.SetAutoWrapText(false)
		for _, acc := range o.Assessment.Accounts {
			accounts.Append([]string{
				acc.Account,
				strconv.Itoa(acc.Incoming),
				strconv.Itoa(acc.Outgoing),
				formatScore(acc.RawScore),
				formatScore(acc.RiskScore),
				strconv.FormatBool(acc.FloorApplied),
				strings.Join(acc.Reasons, ", "),
			})
		}
		accounts.Render()
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
