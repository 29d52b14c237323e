package allocation

import "math"

// GroupUsers is the allocation the group keeps for itself after its
// sub-groups, floored at zero.
func GroupUsers(groupValue, subgroupSum int64) int64 {
	if residual := groupValue - subgroupSum; residual > 0 {
		return residual
	}
	return 0
}

// MaxSubgroup returns the sub-group with the greatest value; ties go to the
// lowest id. It reports false for an empty slice.
func MaxSubgroup(subgroups []SubgroupValue) (SubgroupValue, bool) {
	if len(subgroups) == 0 {
		return SubgroupValue{}, false
	}
	best := subgroups[0]
	for _, sg := range subgroups[1:] {
		if sg.Value > best.Value || (sg.Value == best.Value && sg.ID < best.ID) {
			best = sg
		}
	}
	return best, true
}

// addSaturating adds two non-negative values, clamping at math.MaxInt64.
func addSaturating(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
