package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matsen/gaiaoffline/internal/catalog"
)

// maxColumnWidth caps table columns in human output.
const maxColumnWidth = 24

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitWithErr exits with the code matching err's class.
func exitWithErr(err error, what string) {
	exitWithError(exitCodeFor(err), "%s: %v", what, err)
}

// commandError carries an exit code out of a command's RunE so that its
// deferred cleanup runs before main exits.
type commandError struct {
	code int
	msg  string
}

func (e *commandError) Error() string { return e.msg }

// failf returns a commandError with the given exit code.
func failf(code int, format string, args ...interface{}) error {
	return &commandError{code: code, msg: fmt.Sprintf(format, args...)}
}

// failWith returns a commandError with the code matching err's class.
func failWith(err error, what string) error {
	return failf(exitCodeFor(err), "%s: %v", what, err)
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeCSV writes a result set as CSV with a header row.
func writeCSV(w io.Writer, rs *catalog.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return err
	}
	for i := range rs.Rows {
		if err := cw.Write(rs.Strings(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSONL writes one JSON object per result row.
func writeJSONL(w io.Writer, rs *catalog.ResultSet) error {
	for i := range rs.Rows {
		data, err := rs.MarshalRow(i)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// writeTable writes a result set as a formatted table.
func writeTable(w io.Writer, rs *catalog.ResultSet) {
	if rs.Len() == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	rows := make([][]string, rs.Len())
	widths := make([]int, len(rs.Columns))
	for j, col := range rs.Columns {
		widths[j] = len(col)
	}
	for i := range rs.Rows {
		rows[i] = rs.Strings(i)
		for j, v := range rows[i] {
			if len(v) > widths[j] {
				widths[j] = len(v)
			}
		}
	}
	for j := range widths {
		if widths[j] > maxColumnWidth {
			widths[j] = maxColumnWidth
		}
	}

	header := make([]string, len(rs.Columns))
	for j, col := range rs.Columns {
		header[j] = padRight(truncate(strings.ToUpper(col), widths[j]), widths[j])
	}
	fmt.Fprintln(w, strings.Join(header, "  "))

	for _, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = padRight(truncate(v, widths[j]), widths[j])
		}
		fmt.Fprintln(w, strings.Join(cells, "  "))
	}

	fmt.Fprintf(w, "(%d rows)\n", rs.Len())
}

// truncate shortens s to width, marking the cut with "...".
func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

// padRight pads a string with spaces on the right.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// writeMetrics writes the registry in the Prometheus text format when
// path is set.
func writeMetrics(reg *prometheus.Registry, path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
