// Package ranking scores campaigns and orders them for presentation.
package ranking

import (
	"math"
	"sort"

	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
)

// Weights are the coefficients of the composite score.
type Weights struct {
	Role   float64 `param:"w_role" validate:"finite,gte=0"`
	People float64 `param:"w_people" validate:"finite,gte=0"`
	Value  float64 `param:"w_value" validate:"finite,gte=0"`
	Fund   float64 `param:"w_fund" validate:"finite,gte=0"`
}

// Validate rejects negative coefficients.
func (w Weights) Validate() error {
	return cluster.ValidateStruct(w)
}

// DefaultWeights returns the stock coefficients.
func DefaultWeights() Weights {
	return Weights{Role: 2.0, People: 1.0, Value: 2.0, Fund: 2.0}
}

// ClusterScore is
//
//	role·roleScore + people·people + value·log10(totalValue+1) − fund·fundRatio
//
// with fundRatio = funds / max(allInsiders, 1). A non-positive total value
// contributes nothing.
func ClusterScore(w Weights, people, roleScore int, totalValue float64, funds, allInsiders int) float64 {
	valueTerm := 0.0
	if totalValue > 0 && !math.IsInf(totalValue, 1) {
		valueTerm = math.Log10(totalValue + 1)
	}
	denom := allInsiders
	if denom < 1 {
		denom = 1
	}
	fundRatio := float64(funds) / float64(denom)
	return w.Role*float64(roleScore) +
		w.People*float64(people) +
		w.Value*valueTerm -
		w.Fund*fundRatio
}

// Score computes the composite score of one campaign.
func Score(w Weights, c cluster.Campaign) float64 {
	total, _ := c.TotalValue.Float64()
	return ClusterScore(w, c.NumPeople, c.RoleScore, total, c.NumFunds, c.NumInsiders)
}

// ScoreAll sets ClusterScore on every campaign in place.
func ScoreAll(w Weights, campaigns []cluster.Campaign) {
	for i := range campaigns {
		campaigns[i].ClusterScore = Score(w, campaigns[i])
	}
}

// Rank orders campaigns by score, role score, people and total value, all
// descending. Ticker and window start break any remaining tie.
func Rank(campaigns []cluster.Campaign) []cluster.Campaign {
	out := make([]cluster.Campaign, len(campaigns))
	copy(out, campaigns)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func less(a, b cluster.Campaign) bool {
	if a.ClusterScore != b.ClusterScore {
		return a.ClusterScore > b.ClusterScore
	}
	if a.RoleScore != b.RoleScore {
		return a.RoleScore > b.RoleScore
	}
	if a.NumPeople != b.NumPeople {
		return a.NumPeople > b.NumPeople
	}
	if c := a.TotalValue.Cmp(b.TotalValue); c != 0 {
		return c > 0
	}
	if a.Ticker != b.Ticker {
		return a.Ticker < b.Ticker
	}
	return a.WindowStart.Before(b.WindowStart)
}
