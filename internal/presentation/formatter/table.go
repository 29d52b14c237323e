package formatter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/data/aggregator"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

const (
	groupRowLabel  = "(group)"
	minColumnWidth = 4
)

type TableFormatter struct {
	headers  []string
	tp       *util.TimeProvider
	maxWidth int
}

func NewTableFormatter(tp *util.TimeProvider) *TableFormatter {
	return &TableFormatter{
		headers: []string{
			"Hour", "Sub-group", "Sub-group Value", "Group Users", "Group Value",
		},
		tp: tp,
	}
}

// WithMaxWidth caps the table to width columns. Zero means the terminal
// width when writing to a terminal and no cap otherwise.
func (f *TableFormatter) WithMaxWidth(width int) *TableFormatter {
	f.maxWidth = width
	return f
}

// TerminalWidth returns the width of w when it is a terminal, else 0.
func TerminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// Format prints one boxed table per group, newest hour first.
func (f *TableFormatter) Format(w io.Writer, reports []aggregator.GroupReport) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, "No allocation data")
		return err
	}

	maxWidth := f.maxWidth
	if maxWidth == 0 {
		maxWidth = TerminalWidth(w)
	}
	color := TerminalWidth(w) > 0

	for i, report := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := f.formatGroup(w, report, maxWidth, color); err != nil {
			return err
		}
	}
	return nil
}

func (f *TableFormatter) formatGroup(w io.Writer, report aggregator.GroupReport, maxWidth int, color bool) error {
	title := fmt.Sprintf("Group %d · %d hours", report.GroupID, report.Hours())
	if _, err := fmt.Fprintln(w, util.FormatHeaderTitle(title, color)); err != nil {
		return err
	}

	rows := make([][]string, 0, len(report.Records))
	for _, rec := range report.Records {
		rows = append(rows, f.rowValues(rec))
	}

	widths := f.calculateColumnWidths(rows)
	widths = shrinkWidths(widths, maxWidth)

	var b strings.Builder
	f.writeBorder(&b, widths, "top")
	f.writeRow(&b, f.headers, widths, true)
	f.writeBorder(&b, widths, "middle")
	for i, row := range rows {
		// separate hours, not sub-group rows
		if i > 0 && report.Records[i].IsGroupRow() {
			f.writeBorder(&b, widths, "middle")
		}
		f.writeRow(&b, row, widths, false)
	}
	f.writeBorder(&b, widths, "bottom")

	_, err := io.WriteString(w, b.String())
	return err
}

func (f *TableFormatter) rowValues(rec model.OutputRecord) []string {
	if rec.IsGroupRow() {
		return []string{
			f.tp.FormatHour(rec.Hour),
			groupRowLabel,
			"",
			util.FormatCount(rec.GroupUsersValue),
			util.FormatCount(rec.GroupValue),
		}
	}
	return []string{
		"",
		"└ " + util.FormatOptionalCount(rec.SubgroupID),
		util.FormatOptionalCount(rec.SubgroupValue),
		util.FormatCount(rec.GroupUsersValue),
		util.FormatCount(rec.GroupValue),
	}
}

// calculateColumnWidths determines the display width of each column
func (f *TableFormatter) calculateColumnWidths(rows [][]string) []int {
	widths := make([]int, len(f.headers))
	for i, header := range f.headers {
		widths[i] = util.GetDisplayWidth(header)
	}
	for _, row := range rows {
		for i, value := range row {
			if w := util.GetDisplayWidth(value); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// shrinkWidths narrows the widest column until the table fits maxWidth.
func shrinkWidths(widths []int, maxWidth int) []int {
	if maxWidth <= 0 {
		return widths
	}
	out := make([]int, len(widths))
	copy(out, widths)

	for tableWidth(out) > maxWidth {
		widest := 0
		for i, w := range out {
			if w > out[widest] {
				widest = i
			}
		}
		if out[widest] <= minColumnWidth {
			break
		}
		out[widest]--
	}
	return out
}

// tableWidth is the printed width including borders and padding.
func tableWidth(widths []int) int {
	total := 1
	for _, w := range widths {
		total += w + 3
	}
	return total
}

func (f *TableFormatter) writeBorder(b *strings.Builder, widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(util.FormatSectionSeparator(width + 2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	b.WriteByte('\n')
}

// writeRow pads each cell; the first two columns are left-aligned, numbers right-aligned.
func (f *TableFormatter) writeRow(b *strings.Builder, values []string, widths []int, header bool) {
	b.WriteString("│")
	for i, value := range values {
		value = util.TruncateToWidth(value, widths[i])
		b.WriteByte(' ')
		if header || i < 2 {
			b.WriteString(util.PadRight(value, widths[i]))
		} else {
			b.WriteString(util.PadLeft(value, widths[i]))
		}
		b.WriteString(" │")
	}
	b.WriteByte('\n')
}
