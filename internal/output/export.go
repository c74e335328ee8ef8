package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/moamenhredeen/apihacker/internal/models"
)

// Format represents the output format type
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatNone Format = "none"
)

// ExportSummary writes the run summary to w in the given format
func ExportSummary(w io.Writer, summary models.SummarySnapshot, format Format) error {
	switch format {
	case FormatText:
		return exportText(w, summary)
	case FormatJSON:
		return exportJSON(w, summary)
	case FormatCSV:
		return exportCSV(w, summary)
	case FormatNone:
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// exportText prints a human readable summary
func exportText(w io.Writer, summary models.SummarySnapshot) error {
	var b strings.Builder

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "=== Summary ===")
	fmt.Fprintf(&b, "Total Operations: %d\n", summary.Total)
	fmt.Fprintf(&b, "Submitted:        %d\n", summary.Submitted)
	fmt.Fprintf(&b, "Completed:        %d\n", summary.Completed)
	fmt.Fprintf(&b, "Responses:        %d\n", summary.Sent)
	fmt.Fprintf(&b, "Skipped:          %d\n", summary.Skipped)
	fmt.Fprintf(&b, "Failed:           %d\n", summary.Failed)
	if summary.Unauthorized > 0 {
		fmt.Fprintf(&b, "Unauthorized:     %d\n", summary.Unauthorized)
	}
	fmt.Fprintf(&b, "Duration:         %v\n", summary.Duration.Round(time.Millisecond))

	if len(summary.StatusCodes) > 0 {
		codes := make([]string, 0, len(summary.StatusCodes))
		for _, sc := range summary.StatusCodes {
			codes = append(codes, fmt.Sprintf("%d:%d", sc.Code, sc.Count))
		}
		fmt.Fprintf(&b, "Status codes:     %s\n", strings.Join(codes, ", "))
	}

	if len(summary.SampleErrors) > 0 {
		fmt.Fprintln(&b, "Sample errors:")
		for _, e := range summary.SampleErrors {
			fmt.Fprintf(&b, "  - %s\n", e)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// exportJSON writes the summary as indented JSON
func exportJSON(w io.Writer, summary models.SummarySnapshot) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// exportCSV writes one metric per row
func exportCSV(w io.Writer, summary models.SummarySnapshot) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	rows := [][]string{
		{"metric", "value"},
		{"total", strconv.Itoa(summary.Total)},
		{"submitted", strconv.Itoa(summary.Submitted)},
		{"completed", strconv.Itoa(summary.Completed)},
		{"sent", strconv.Itoa(summary.Sent)},
		{"skipped", strconv.Itoa(summary.Skipped)},
		{"failed", strconv.Itoa(summary.Failed)},
		{"unauthorized", strconv.Itoa(summary.Unauthorized)},
		{"duration_ms", fmt.Sprintf("%.2f", float64(summary.Duration.Microseconds())/1000)},
	}
	for _, sc := range summary.StatusCodes {
		rows = append(rows, []string{"status_" + strconv.Itoa(sc.Code), strconv.Itoa(sc.Count)})
	}

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ParseFormat parses a string into a Format, returning error if invalid
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "none":
		return FormatNone, nil
	default:
		return "", fmt.Errorf("invalid format '%s': must be 'text', 'json', 'csv' or 'none'", s)
	}
}
