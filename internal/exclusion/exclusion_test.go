package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExcluded(t *testing.T) {
	tests := []struct {
		name  string
		party string
		rules []Rule
		want  bool
	}{
		{
			name:  "active rule matches",
			party: "RA CAPITAL MANAGEMENT LP",
			rules: []Rule{{Pattern: "RA CAPITAL", Active: true}},
			want:  true,
		},
		{
			name:  "inactive rule ignored",
			party: "RA CAPITAL MANAGEMENT LP",
			rules: []Rule{{Pattern: "RA CAPITAL", Active: false}},
			want:  false,
		},
		{
			name:  "case and whitespace insensitive",
			party: "Baker  Bros. Advisors",
			rules: []Rule{{Pattern: "baker bros", Active: true}},
			want:  true,
		},
		{
			name:  "blank pattern never matches",
			party: "JOHN SMITH",
			rules: []Rule{{Pattern: "   ", Active: true}},
			want:  false,
		},
		{
			name:  "no rules",
			party: "JOHN SMITH",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExcluded(tt.party, tt.rules))
		})
	}
}

func TestFilterMatchReturnsFirstRule(t *testing.T) {
	f := Compile([]Rule{
		{ID: 1, Pattern: "OLD", Active: false},
		{ID: 2, Pattern: "CAPITAL", Reason: "generic fund", Active: true},
		{ID: 3, Pattern: "RA CAPITAL", Reason: "specific", Active: true},
	})
	require.Equal(t, 2, f.Len())

	rule := f.Match("ra capital management")
	require.NotNil(t, rule)
	assert.Equal(t, int64(2), rule.ID)
	assert.Equal(t, "generic fund", rule.Reason)

	assert.Nil(t, f.Match("JANE DOE"))
	assert.Nil(t, (*Filter)(nil).Match("RA CAPITAL"))
}
