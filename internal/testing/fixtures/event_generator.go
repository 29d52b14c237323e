package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
)

// ExportTimeLayout is the timestamp layout of SQL table exports.
const ExportTimeLayout = "2006-01-02 15:04:05 UTC"

// Event is one exported change row in the wire layout of the event tables.
type Event struct {
	GroupID         int64   `json:"group_id"`
	SubgroupID      *int64  `json:"sub_group_id"`
	CreatedAt       string  `json:"created_at"`
	ActualCreatedAt *string `json:"actual_created_at"`
	Value           float64 `json:"mpa"`
	TableName       string  `json:"table_name"`
}

func exportTime(t time.Time) string {
	return t.UTC().Format(ExportTimeLayout)
}

// GroupPlan is a group value change effective and visible at at.
func GroupPlan(groupID int64, at time.Time, value float64) Event {
	return Event{
		GroupID:   groupID,
		CreatedAt: exportTime(at),
		Value:     value,
		TableName: model.LabelGroup,
	}
}

// GroupPlanVersion is a group revision effective at at.
func GroupPlanVersion(groupID int64, at time.Time, value float64) Event {
	e := GroupPlan(groupID, at, value)
	e.TableName = model.LabelGroupRevision
	return e
}

// SubGroup is a sub-group value change effective at at and visible from
// visibleAt.
func SubGroup(groupID, subgroupID int64, at, visibleAt time.Time, value float64) Event {
	visible := exportTime(visibleAt)
	return Event{
		GroupID:         groupID,
		SubgroupID:      &subgroupID,
		CreatedAt:       exportTime(at),
		ActualCreatedAt: &visible,
		Value:           value,
		TableName:       model.LabelSubgroup,
	}
}

// EventGenerator writes event export files below a base directory.
type EventGenerator struct {
	baseDir string
}

// NewEventGenerator creates a new generator rooted at baseDir.
func NewEventGenerator(baseDir string) *EventGenerator {
	return &EventGenerator{
		baseDir: baseDir,
	}
}

// GetBaseDir returns the base directory for test data
func (g *EventGenerator) GetBaseDir() string {
	return g.baseDir
}

// GenerateScenario writes a group holding one sub-group that becomes visible
// an hour after it takes effect, followed by a group revision two hours in.
// The returned path is the written file.
func (g *EventGenerator) GenerateScenario(name string, groupID int64, start time.Time) (string, error) {
	events := []Event{
		GroupPlan(groupID, start, 10),
		SubGroup(groupID, 5, start, start.Add(time.Hour), 4),
		GroupPlanVersion(groupID, start.Add(2*time.Hour), 12),
	}
	return g.WriteJSONL(name, events)
}

// GenerateLargeDataset writes groups groups, each with a sub-group change
// every hour for hours hours.
func (g *EventGenerator) GenerateLargeDataset(name string, start time.Time, groups, hours int) (string, error) {
	events := make([]Event, 0, groups*(hours+1))
	for gid := 1; gid <= groups; gid++ {
		events = append(events, GroupPlan(int64(gid), start, float64(10*hours)))
		for h := 0; h < hours; h++ {
			at := start.Add(time.Duration(h) * time.Hour)
			events = append(events, SubGroup(int64(gid), int64(h%3+1), at, at, float64(h)))
		}
	}
	return g.WriteJSONL(name, events)
}

// CreateEmptyFile creates an empty export file.
func (g *EventGenerator) CreateEmptyFile(name string) (string, error) {
	return g.WriteJSONL(name, nil)
}

// WriteJSONL writes events, one per line, to name below the base directory.
func (g *EventGenerator) WriteJSONL(name string, events []Event) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := sonic.ConfigDefault.NewEncoder(file)
	for i, event := range events {
		if err := encoder.Encode(event); err != nil {
			return "", fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return path, nil
}
