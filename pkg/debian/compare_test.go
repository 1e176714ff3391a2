package debian

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelation_Matches(t *testing.T) {
	var cases = []struct {
		s1  string
		rel *Relation
		cmp Comparator
		ok  bool
	}{
		{
			"0.0.23.1-1.1",
			&Relation{Version: "0.0.23.1-5", Constraint: "<="},
			DebianComparator{},
			true,
		},
		{
			"0.0.23.1-1.1",
			&Relation{Version: "0.0.23.1", Constraint: ">="},
			DebianComparator{},
			true,
		},
		{
			"1.0",
			&Relation{Version: "2.0", Constraint: ">="},
			DebianComparator{},
			false,
		},
		{
			"1:1.0",
			&Relation{Version: "2.0", Constraint: ">>"},
			DebianComparator{},
			true,
		},
		{
			"1.0~rc1",
			&Relation{Version: "1.0", Constraint: "<<"},
			DebianComparator{},
			true,
		},
		{
			"",
			&Relation{Version: "1.2.3", Constraint: "="},
			DebianComparator{},
			false,
		},
		{
			"1.2.3",
			&Relation{},
			DebianComparator{},
			true,
		},
		{
			"2.0-1ubuntu3",
			&Relation{Version: "2.0", Constraint: "="},
			LegacyComparator{},
			true,
		},
		{
			"1.4",
			&Relation{Version: "1.10", Constraint: "<"},
			LegacyComparator{},
			true,
		},
		{
			"1:1.0",
			&Relation{Version: "2.0", Constraint: ">"},
			LegacyComparator{},
			false,
		},
	}

	for _, tt := range cases {
		t.Run(tt.s1+" "+tt.rel.Constraint+" "+tt.rel.Version, func(t *testing.T) {
			ok := tt.rel.Matches(tt.cmp, tt.s1)
			assert.EqualValues(t, tt.ok, ok)
		})
	}
}

func TestNewComparator(t *testing.T) {
	cmp, err := NewComparator("")
	assert.NoError(t, err)
	assert.IsType(t, DebianComparator{}, cmp)

	cmp, err = NewComparator(ComparatorLegacy)
	assert.NoError(t, err)
	assert.IsType(t, LegacyComparator{}, cmp)

	_, err = NewComparator("semver")
	assert.Error(t, err)
}
