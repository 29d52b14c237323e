package allocation

import (
	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/core/resample"
)

// Emitter turns hourly states into report rows, newest hour first.
type Emitter struct {
	groupID int64
	mode    SubgroupOutputMode
	gate    *Gate
}

// NewEmitter creates an emitter for one group.
func NewEmitter(groupID int64, mode SubgroupOutputMode, gate *Gate) *Emitter {
	return &Emitter{
		groupID: groupID,
		mode:    mode,
		gate:    gate,
	}
}

// Emit walks states (oldest first) from the latest hour back. Each visible
// hour yields a group row followed by its sub-group rows.
func (e *Emitter) Emit(states []resample.HourlyState) []model.OutputRecord {
	records := make([]model.OutputRecord, 0, len(states))

	for i := len(states) - 1; i >= 0; i-- {
		hour, ok := e.gate.Apply(states[i])
		if !ok {
			continue
		}

		groupUsers := GroupUsers(hour.GroupValue, hour.CountedSum)
		records = append(records, model.OutputRecord{
			Hour:            hour.Hour,
			GroupID:         e.groupID,
			GroupUsersValue: groupUsers,
			GroupValue:      hour.GroupValue,
		})

		switch e.mode {
		case MaxOnly:
			if sg, ok := MaxSubgroup(hour.Visible); ok {
				records = append(records, e.subgroupRecord(hour, sg, groupUsers))
			}
		default:
			for _, sg := range hour.Visible {
				records = append(records, e.subgroupRecord(hour, sg, groupUsers))
			}
		}
	}

	return records
}

func (e *Emitter) subgroupRecord(hour GatedHour, sg SubgroupValue, groupUsers int64) model.OutputRecord {
	id, value := sg.ID, sg.Value
	return model.OutputRecord{
		Hour:            hour.Hour,
		GroupID:         e.groupID,
		SubgroupID:      &id,
		SubgroupValue:   &value,
		GroupUsersValue: groupUsers,
		GroupValue:      hour.GroupValue,
	}
}
