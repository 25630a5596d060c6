package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amizuno/winscope/internal/types"
)

func testProfile() *types.OperatorProfile {
	return &types.OperatorProfile{
		Name:             "Miyagi Automation",
		Codes:            []string{"333922", "541330"},
		Capabilities:     []string{"Robot integration", "Conveyor systems", "PLC programming"},
		TargetValueLow:   50000,
		TargetValueHigh:  500000,
		PreferredRegions: []string{"CA", "MI"},
	}
}

func TestCategoryFactor(t *testing.T) {
	profile := testProfile()

	tests := []struct {
		name  string
		codes []string
		want  float64
	}{
		{"exact match", []string{"333922"}, 1.0},
		{"exact match among several", []string{"111111", "541330"}, 1.0},
		{"same industry group", []string{"333999"}, 0.7},
		{"unrelated industry", []string{"722511"}, 0.2},
		{"no codes", nil, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categoryFactor(tt.codes, profile))
		})
	}
}

func TestValueFactor(t *testing.T) {
	profile := testProfile()

	tests := []struct {
		name  string
		value float64
		want  float64
	}{
		{"inside range", 250000, 1.0},
		{"at lower bound", 50000, 1.0},
		{"at upper bound", 500000, 1.0},
		{"below range scales down", 25000, 0.5},
		{"far below range floors at 0.3", 1000, 0.3},
		{"above range scales down", 1000000, 0.5},
		{"far above range floors at 0.2", 50000000, 0.2},
		{"unknown value is neutral", 0, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, valueFactor(tt.value, profile), 1e-9)
		})
	}
}

func TestValueFactor_NoTargetRange(t *testing.T) {
	profile := &types.OperatorProfile{}
	assert.Equal(t, 0.5, valueFactor(250000, profile))
}

func TestGeographyFactor(t *testing.T) {
	profile := testProfile()

	tests := []struct {
		name     string
		location string
		want     float64
	}{
		{"preferred state", "San Diego, CA", 1.0},
		{"preferred state lowercase", "detroit, mi", 1.0},
		{"nationwide", "CONUS locations", 0.7},
		{"explicit nationwide", "Nationwide", 0.7},
		{"other state", "Austin, TX", 0.3},
		{"unknown", "", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geographyFactor(tt.location, profile))
		})
	}
}

func TestSetAsideFactor(t *testing.T) {
	tests := []struct {
		name     string
		setAside string
		want     float64
	}{
		{"women owned", "Women-Owned Small Business (WOSB)", 1.0},
		{"minority", "Minority Business Enterprise", 1.0},
		{"small business", "Total Small Business Set-Aside (SB)", 0.8},
		{"veteran owned", "SDVOSB Set-Aside", 0.8},
		{"unrestricted", "Full and Open Competition", 0.4},
		{"unrecognized designation", "Regional Preference Tier 2", 0.5},
		{"unspecified", "", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, setAsideFactor(tt.setAside))
		})
	}
}
