package allocation

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/core/resample"
)

// SubgroupOutputMode selects how many sub-group rows are emitted per hour.
type SubgroupOutputMode int

const (
	// AllSubgroups emits one row per visible sub-group.
	AllSubgroups SubgroupOutputMode = iota
	// MaxOnly emits only the visible sub-group with the greatest value.
	MaxOnly
)

// ParseSubgroupOutputMode parses "all" or "max".
func ParseSubgroupOutputMode(s string) (SubgroupOutputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AllSubgroups, nil
	case "max", "max-only", "max_only":
		return MaxOnly, nil
	default:
		return 0, model.NewInvalidInput("subgroup_output_mode", -1, "unknown mode %q", s)
	}
}

func (m SubgroupOutputMode) String() string {
	switch m {
	case AllSubgroups:
		return "all"
	case MaxOnly:
		return "max"
	default:
		return fmt.Sprintf("SubgroupOutputMode(%d)", int(m))
	}
}

// InvisibleSubgroupPolicy decides whether a sub-group that is not yet visible
// still reduces the group-users residual.
type InvisibleSubgroupPolicy int

const (
	// ExcludeInvisible hides the sub-group and leaves it out of the residual.
	ExcludeInvisible InvisibleSubgroupPolicy = iota
	// IncludeInvisible hides the sub-group row but still subtracts its value.
	IncludeInvisible
)

// ParseInvisibleSubgroupPolicy parses "exclude" or "include".
func ParseInvisibleSubgroupPolicy(s string) (InvisibleSubgroupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclude":
		return ExcludeInvisible, nil
	case "include":
		return IncludeInvisible, nil
	default:
		return 0, model.NewInvalidInput("invisible_subgroups", -1, "unknown policy %q", s)
	}
}

func (p InvisibleSubgroupPolicy) String() string {
	switch p {
	case ExcludeInvisible:
		return "exclude"
	case IncludeInvisible:
		return "include"
	default:
		return fmt.Sprintf("InvisibleSubgroupPolicy(%d)", int(p))
	}
}

// Options configures a Transform call. The zero value equals DefaultOptions.
type Options struct {
	FreezeStaleGroupValue bool
	Lookback              resample.LookbackWindow
	SubgroupOutput        SubgroupOutputMode
	InvisibleSubgroups    InvisibleSubgroupPolicy
}

// DefaultOptions returns every variant switched off.
func DefaultOptions() Options {
	return Options{
		FreezeStaleGroupValue: false,
		Lookback:              resample.LookbackAll,
		SubgroupOutput:        AllSubgroups,
		InvisibleSubgroups:    ExcludeInvisible,
	}
}

// Validate rejects enum values outside their declared range.
func (o Options) Validate() error {
	switch o.Lookback {
	case resample.LookbackAll, resample.LookbackLastYear:
	default:
		return model.NewInvalidInput("lookback", -1, "unknown lookback window %d", int(o.Lookback))
	}
	switch o.SubgroupOutput {
	case AllSubgroups, MaxOnly:
	default:
		return model.NewInvalidInput("subgroup_output_mode", -1, "unknown mode %d", int(o.SubgroupOutput))
	}
	switch o.InvisibleSubgroups {
	case ExcludeInvisible, IncludeInvisible:
	default:
		return model.NewInvalidInput("invisible_subgroups", -1, "unknown policy %d", int(o.InvisibleSubgroups))
	}
	return nil
}

// Fingerprint renders the options as one string for run logs.
func (o Options) Fingerprint() string {
	return fmt.Sprintf("freeze=%t|lookback=%s|subgroups=%s|invisible=%s",
		o.FreezeStaleGroupValue, o.Lookback, o.SubgroupOutput, o.InvisibleSubgroups)
}
