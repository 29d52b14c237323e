package formatter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/penwyp/go-alloc-timeline/internal/data/aggregator"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// SummaryFormatter prints per-group statistics instead of every hour.
type SummaryFormatter struct {
	tp *util.TimeProvider
}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter(tp *util.TimeProvider) *SummaryFormatter {
	return &SummaryFormatter{tp: tp}
}

// GroupSummary condenses one report.
type GroupSummary struct {
	GroupID         int64
	Hours           int
	FirstHour       string
	LastHour        string
	LatestValue     int64
	LatestUsers     int64
	PeakValue       int64
	PeakUsers       int64
	Subgroups       []int64
	PeakSubgroupID  int64
	PeakSubgroupVal int64
}

// Summarize computes the summary of a report. Records are newest first.
func (f *SummaryFormatter) Summarize(report aggregator.GroupReport) GroupSummary {
	s := GroupSummary{GroupID: report.GroupID, Hours: report.Hours()}
	if len(report.Records) == 0 {
		return s
	}

	newest := report.Records[0]
	oldest := report.Records[len(report.Records)-1]
	s.LastHour = f.tp.FormatHour(newest.Hour)
	s.FirstHour = f.tp.FormatHour(oldest.Hour)
	s.LatestValue = newest.GroupValue
	s.LatestUsers = newest.GroupUsersValue

	seen := make(map[int64]bool)
	havePeak := false
	for _, rec := range report.Records {
		if rec.GroupValue > s.PeakValue {
			s.PeakValue = rec.GroupValue
		}
		if rec.GroupUsersValue > s.PeakUsers {
			s.PeakUsers = rec.GroupUsersValue
		}
		if rec.SubgroupID == nil {
			continue
		}
		id := *rec.SubgroupID
		if !seen[id] {
			seen[id] = true
			s.Subgroups = append(s.Subgroups, id)
		}
		if rec.SubgroupValue == nil {
			continue
		}
		v := *rec.SubgroupValue
		if !havePeak || v > s.PeakSubgroupVal || (v == s.PeakSubgroupVal && id < s.PeakSubgroupID) {
			havePeak = true
			s.PeakSubgroupVal = v
			s.PeakSubgroupID = id
		}
	}
	sort.Slice(s.Subgroups, func(i, j int) bool { return s.Subgroups[i] < s.Subgroups[j] })
	return s
}

// Format formats and outputs the summary of every report.
func (f *SummaryFormatter) Format(w io.Writer, reports []aggregator.GroupReport) error {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("Effective Allocation Summary\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	if len(reports) == 0 {
		b.WriteString("No data to summarize\n\n")
		b.WriteString(strings.Repeat("=", 60) + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	totalHours := 0
	for _, report := range reports {
		s := f.Summarize(report)
		totalHours += s.Hours

		fmt.Fprintf(&b, "Group %d:\n", s.GroupID)
		if s.Hours == 0 {
			b.WriteString("  No visible hours\n\n")
			continue
		}
		if s.FirstHour == s.LastHour {
			fmt.Fprintf(&b, "  Hour Range:           %s\n", s.FirstHour)
		} else {
			fmt.Fprintf(&b, "  Hour Range:           %s to %s\n", s.FirstHour, s.LastHour)
		}
		fmt.Fprintf(&b, "  Hours:                %s\n", util.FormatCount(int64(s.Hours)))
		fmt.Fprintf(&b, "  Latest Group Value:   %s\n", util.FormatCount(s.LatestValue))
		fmt.Fprintf(&b, "  Latest Group Users:   %s\n", util.FormatCount(s.LatestUsers))
		fmt.Fprintf(&b, "  Peak Group Value:     %s\n", util.FormatCount(s.PeakValue))
		fmt.Fprintf(&b, "  Peak Group Users:     %s\n", util.FormatCount(s.PeakUsers))
		fmt.Fprintf(&b, "  Sub-groups Reported:  %d\n", len(s.Subgroups))
		if len(s.Subgroups) > 0 {
			fmt.Fprintf(&b, "  Peak Sub-group:       %d (%s)\n", s.PeakSubgroupID, util.FormatCount(s.PeakSubgroupVal))
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("-", 60) + "\n")
	fmt.Fprintf(&b, "Groups: %d, Hours: %s\n", len(reports), util.FormatCount(int64(totalHours)))
	b.WriteString(strings.Repeat("=", 60) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
