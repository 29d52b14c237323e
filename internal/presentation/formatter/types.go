package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-alloc-timeline/internal/data/aggregator"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// Output format names accepted by New.
const (
	FormatTable   = "table"
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatSummary = "summary"
)

// Formatter renders group reports.
type Formatter interface {
	Format(w io.Writer, reports []aggregator.GroupReport) error
}

// New returns the formatter for name. tp controls how the table and summary
// render hours; json and csv always use UTC.
func New(name string, tp *util.TimeProvider) (Formatter, error) {
	if tp == nil {
		tp = util.GetTimeProvider()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", FormatTable:
		return NewTableFormatter(tp), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatCSV:
		return NewCSVFormatter(), nil
	case FormatSummary:
		return NewSummaryFormatter(tp), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json, csv or summary)", name)
	}
}

// flatten concatenates the records of every report with hours in UTC.
func flatten(reports []aggregator.GroupReport) []recordView {
	n := 0
	for _, r := range reports {
		n += len(r.Records)
	}
	out := make([]recordView, 0, n)
	for _, r := range reports {
		for _, rec := range r.Records {
			rec.Hour = rec.Hour.UTC()
			out = append(out, recordView(rec))
		}
	}
	return out
}
