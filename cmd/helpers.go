package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-vps/internal/session"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRecord writes a record as JSON or as labelled lines.
func printRecord(cmd *cobra.Command, rec *session.Record) error {
	w := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(w, rec)
	}

	fmt.Fprintf(w, "Resource: %s\n", rec.Name)
	fmt.Fprintf(w, "Owner: %s\n", rec.OwnerID)
	fmt.Fprintf(w, "State: %s\n", rec.State)
	fmt.Fprintf(w, "Limits: %s\n", rec.Limits)
	if rec.Image != "" {
		fmt.Fprintf(w, "Image: %s\n", rec.Image)
	}
	if rec.Credential != "" {
		fmt.Fprintf(w, "Connect: %s\n", rec.Credential)
	}
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

// printRecords writes records as a JSON array or a table.
func printRecords(cmd *cobra.Command, records []*session.Record) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		if records == nil {
			records = []*session.Record{}
		}
		return printJSON(out, records)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOWNER\tSTATE\tLIMITS\tCONNECT")
	fmt.Fprintln(w, "----\t-----\t-----\t------\t-------")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rec.Name, rec.OwnerID, rec.State, rec.Limits, rec.Credential)
	}
	return w.Flush()
}

func formatStatus(status health.Status) string {
	switch status {
	case health.StatusHealthy:
		return "✓ healthy"
	case health.StatusNoSession:
		return "○ no-session"
	case health.StatusMissing:
		return "⚠ missing"
	case health.StatusStopped:
		return "● stopped"
	default:
		return string(status)
	}
}

func boolStatus(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
