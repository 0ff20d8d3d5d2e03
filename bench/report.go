package bench

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format selects the report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format: %s (use 'text' or 'json')", s)
	}
}

// Write renders results to w.
func Write(w io.Writer, results []Result, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	default:
		return writeText(w, results)
	}
}

// writeText prints one line per result:
// test NAME ... bench: MEAN ns/iter (+/- STDDEV)
func writeText(w io.Writer, results []Result) error {
	width := 0
	for _, r := range results {
		if len(r.Name) > width {
			width = len(r.Name)
		}
	}

	if _, err := fmt.Fprintf(w, "running %d benchmarks\n", len(results)); err != nil {
		return err
	}
	for _, r := range results {
		_, err := fmt.Fprintf(w, "test %-*s ... bench: %12.2f ns/iter (+/- %.2f)\n",
			width, r.Name, r.MeanNs, r.StdDevNs)
		if err != nil {
			return err
		}
	}
	return nil
}
