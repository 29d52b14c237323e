package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// NoSubgroup is the sub-group id carried by group-level events.
const NoSubgroup int64 = 0

// Columns is the column-aligned transform input. All six slices must have the
// same length; index i across them describes one change event.
type Columns struct {
	GroupIDs        []int64
	SubgroupIDs     []*int64
	EffectiveTimes  []string
	VisibilityTimes []*string
	Values          []*float64
	Kinds           []string
}

// Len returns the row count when all columns agree, or an InvalidInputError
// naming the first column that does not.
func (c Columns) Len() (int, error) {
	n := len(c.GroupIDs)
	lengths := []struct {
		field string
		n     int
	}{
		{"subgroup_id", len(c.SubgroupIDs)},
		{"effective_time", len(c.EffectiveTimes)},
		{"visibility_time", len(c.VisibilityTimes)},
		{"value", len(c.Values)},
		{"entity_kind", len(c.Kinds)},
	}
	for _, l := range lengths {
		if l.n != n {
			return 0, NewInvalidInput(l.field, -1, "length %d does not match group_id length %d", l.n, n)
		}
	}
	return n, nil
}

// Append adds one row to every column.
func (c *Columns) Append(row EventRow) {
	c.GroupIDs = append(c.GroupIDs, row.GroupID)
	c.SubgroupIDs = append(c.SubgroupIDs, row.SubgroupID)
	c.EffectiveTimes = append(c.EffectiveTimes, row.EffectiveTime)
	c.VisibilityTimes = append(c.VisibilityTimes, row.VisibilityTime)
	c.Values = append(c.Values, row.Value.Ptr())
	c.Kinds = append(c.Kinds, row.Kind)
}

// ChangeEvent is one normalized input row.
type ChangeEvent struct {
	Kind           EntityKind
	GroupID        int64
	SubgroupID     int64 // NoSubgroup for group-level events
	EffectiveTime  time.Time
	VisibilityTime *time.Time // nil: visible as soon as recorded
	Value          int64
	Seq            int // input position, used to keep ties in input order
}

// OutputRecord is one reported row. SubgroupID and SubgroupValue are nil on
// group-level rows.
type OutputRecord struct {
	Hour            time.Time `json:"hour"`
	GroupID         int64     `json:"group_id"`
	SubgroupID      *int64    `json:"subgroup_id"`
	SubgroupValue   *int64    `json:"subgroup_value"`
	GroupUsersValue int64     `json:"group_users_value"`
	GroupValue      int64     `json:"group_value"`
}

// IsGroupRow reports whether the record is the group-level row of its hour.
func (r OutputRecord) IsGroupRow() bool {
	return r.SubgroupID == nil
}

// EventRow is one line of a JSONL event export.
type EventRow struct {
	GroupID        int64          `json:"group_id"`
	SubgroupID     *int64         `json:"sub_group_id"`
	EffectiveTime  string         `json:"created_at"`
	VisibilityTime *string        `json:"actual_created_at"`
	Value          FlexibleNumber `json:"mpa"`
	Kind           string         `json:"table_name"`
}

// rowAliases mirrors EventRow with the engine's own column names.
type rowAliases struct {
	SubgroupID     *int64         `json:"subgroup_id"`
	EffectiveTime  string         `json:"effective_time"`
	VisibilityTime *string        `json:"visibility_time"`
	Value          FlexibleNumber `json:"value"`
	Kind           string         `json:"entity_kind"`
}

// UnmarshalJSON accepts both the exported table column names and the engine
// names; when both are present the export name wins.
func (r *EventRow) UnmarshalJSON(data []byte) error {
	type plain EventRow
	var p plain
	if err := sonic.Unmarshal(data, &p); err != nil {
		return err
	}
	var a rowAliases
	if err := sonic.Unmarshal(data, &a); err != nil {
		return err
	}
	if p.SubgroupID == nil {
		p.SubgroupID = a.SubgroupID
	}
	if p.EffectiveTime == "" {
		p.EffectiveTime = a.EffectiveTime
	}
	if p.VisibilityTime == nil {
		p.VisibilityTime = a.VisibilityTime
	}
	if !p.Value.Valid {
		p.Value = a.Value
	}
	if p.Kind == "" {
		p.Kind = a.Kind
	}
	*r = EventRow(p)
	return nil
}

// FlexibleNumber decodes a JSON number, a numeric string or null.
type FlexibleNumber struct {
	Value float64
	Valid bool
}

func (n *FlexibleNumber) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*n = FlexibleNumber{}
		return nil
	}

	var f float64
	if err := sonic.Unmarshal(data, &f); err == nil {
		*n = FlexibleNumber{Value: f, Valid: true}
		return nil
	}

	var s string
	if err := sonic.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			*n = FlexibleNumber{}
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return fmt.Errorf("value %q is not a number", s)
		}
		*n = FlexibleNumber{Value: f, Valid: true}
		return nil
	}

	return fmt.Errorf("value must be a number, numeric string or null")
}

func (n FlexibleNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// Ptr returns nil for a null number.
func (n FlexibleNumber) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}
