package ranking

import (
	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
)

// Thresholds are optional campaign filters. A nil field applies no constraint.
type Thresholds struct {
	MinClusterScore *float64 `param:"min_cluster_score" validate:"omitempty,finite"`
	MinRoleScore    *int     `param:"min_role_score" validate:"omitempty,gte=0"`
	MinPeople       *int     `param:"min_people" validate:"omitempty,gte=0"`
	MaxFundRatio    *float64 `param:"max_fund_ratio" validate:"omitempty,finite,gte=0,lte=1"`
}

// Validate reports the first out-of-range threshold as a *cluster.ParamError.
func (t Thresholds) Validate() error {
	return cluster.ValidateStruct(t)
}

// PassesFilters reports whether c satisfies every threshold that is set.
// ClusterScore must already be populated.
func PassesFilters(c cluster.Campaign, t Thresholds) bool {
	if t.MinClusterScore != nil && c.ClusterScore < *t.MinClusterScore {
		return false
	}
	if t.MinRoleScore != nil && c.RoleScore < *t.MinRoleScore {
		return false
	}
	if t.MinPeople != nil && c.NumPeople < *t.MinPeople {
		return false
	}
	if t.MaxFundRatio != nil && c.FundRatio() > *t.MaxFundRatio {
		return false
	}
	return true
}

// Filter returns the campaigns that pass t, preserving order.
func Filter(campaigns []cluster.Campaign, t Thresholds) []cluster.Campaign {
	out := make([]cluster.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if PassesFilters(c, t) {
			out = append(out, c)
		}
	}
	return out
}

// Float returns a pointer to v, for building Thresholds.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building Thresholds.
func Int(v int) *int { return &v }
