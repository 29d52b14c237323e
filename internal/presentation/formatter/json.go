package formatter

import (
	"io"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/data/aggregator"
)

// recordView is an OutputRecord as it is written to json and csv.
type recordView model.OutputRecord

func (r recordView) hour() string {
	return r.Hour.UTC().Format(time.RFC3339)
}

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes every record as one indented JSON array, nulls kept.
func (f *JSONFormatter) Format(w io.Writer, reports []aggregator.GroupReport) error {
	data, err := sonic.ConfigStd.MarshalIndent(flatten(reports), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
