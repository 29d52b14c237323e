package formatter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/penwyp/go-alloc-timeline/internal/data/aggregator"
)

var csvHeaders = []string{
	"hour", "group_id", "subgroup_id", "subgroup_value", "group_users_value", "group_value",
}

type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// Format writes one line per record; null columns are empty cells.
func (f *CSVFormatter) Format(w io.Writer, reports []aggregator.GroupReport) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeaders); err != nil {
		return err
	}

	for _, rec := range flatten(reports) {
		record := []string{
			rec.hour(),
			strconv.FormatInt(rec.GroupID, 10),
			optionalInt(rec.SubgroupID),
			optionalInt(rec.SubgroupValue),
			strconv.FormatInt(rec.GroupUsersValue, 10),
			strconv.FormatInt(rec.GroupValue, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
