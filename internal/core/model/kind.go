package model

import (
	"fmt"
	"strings"
)

// EntityKind identifies which entity a change event updates.
type EntityKind int

const (
	KindGroup EntityKind = iota
	KindGroupRevision
	KindSubgroup
	KindSubgroupRevision
)

// Entity kind labels as they appear in exported event tables.
const (
	LabelGroup            = "group_plans"
	LabelGroupRevision    = "group_plan_versions"
	LabelSubgroup         = "sub_groups"
	LabelSubgroupRevision = "sub_group_versions"
)

var kindLabels = map[string]EntityKind{
	"group":               KindGroup,
	"group_plan":          KindGroup,
	LabelGroup:            KindGroup,
	"group_version":       KindGroupRevision,
	"group_plan_version":  KindGroupRevision,
	LabelGroupRevision:    KindGroupRevision,
	"subgroup":            KindSubgroup,
	"sub_group":           KindSubgroup,
	LabelSubgroup:         KindSubgroup,
	"subgroup_version":    KindSubgroupRevision,
	"sub_group_version":   KindSubgroupRevision,
	LabelSubgroupRevision: KindSubgroupRevision,
}

// ParseEntityKind maps a source label to its kind. Matching is exact after
// trimming and lower-casing.
func ParseEntityKind(label string) (EntityKind, error) {
	kind, ok := kindLabels[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return 0, fmt.Errorf("unrecognized entity kind %q", label)
	}
	return kind, nil
}

// IsGroup reports whether events of this kind overwrite the group value.
func (k EntityKind) IsGroup() bool {
	return k == KindGroup || k == KindGroupRevision
}

// IsSubgroup reports whether events of this kind overwrite a sub-group value.
func (k EntityKind) IsSubgroup() bool {
	return k == KindSubgroup || k == KindSubgroupRevision
}

// IsRevision reports whether the kind is a versioned revision of a plan.
func (k EntityKind) IsRevision() bool {
	return k == KindGroupRevision || k == KindSubgroupRevision
}

func (k EntityKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindGroupRevision:
		return "group_revision"
	case KindSubgroup:
		return "subgroup"
	case KindSubgroupRevision:
		return "subgroup_revision"
	default:
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
}
