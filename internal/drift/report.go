package drift

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Format is the drift report output format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// Report is a drift result for one stack.
type Report struct {
	Stack   string `json:"stack"`
	Account string `json:"account"`
	Result
}

// Write renders the report in the given format.
func (r Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling drift report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatTable, "":
		return r.writeTable(w)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func (r Report) writeTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "STACK:\t%s\nACCOUNT:\t%s\n\n", r.Stack, r.Account)
	fmt.Fprintln(tw, "ATTRIBUTE\tRESOURCE\tDECLARED\tLIVE")
	fmt.Fprintln(tw, "---------\t--------\t--------\t----")
	for _, d := range r.Drifts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Attribute, d.Resource, formatValue(d.Declared), formatLive(d.Live))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Summary: %d drifts across %d checked attributes\n", len(r.Drifts), len(r.Checked))

	return tw.Flush()
}

func formatLive(v any) string {
	if v == nil {
		return "<missing>"
	}
	return formatValue(v)
}

func formatValue(v any) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(string); ok && s == "" {
		return "<empty>"
	}
	return fmt.Sprintf("%v", v)
}
