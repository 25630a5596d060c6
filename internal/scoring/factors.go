package scoring

import (
	"strings"

	"github.com/amizuno/winscope/internal/types"
)

// Factor weights. The five factors are each scored 0.0 to 1.0 and combined
// into a 0 to 100 total.
const (
	weightCategory = 25.0
	weightValue    = 20.0
	weightGeo      = 15.0
	weightSetAside = 15.0
	weightSemantic = 25.0
)

// categoryFactor compares the opportunity's industry codes against the
// operator's. An exact code match is best, a shared 4-digit industry group
// is related, and missing codes are neutral.
func categoryFactor(codes []string, profile *types.OperatorProfile) float64 {
	if len(codes) == 0 {
		return 0.5
	}

	mine := make(map[string]bool, len(profile.Codes))
	for _, c := range profile.Codes {
		mine[c] = true
	}
	for _, c := range codes {
		if mine[c] {
			return 1.0
		}
	}

	for _, pc := range profile.Codes {
		if len(pc) < 4 {
			continue
		}
		for _, oc := range codes {
			if len(oc) >= 4 && pc[:4] == oc[:4] {
				return 0.7
			}
		}
	}

	return 0.2
}

// valueFactor scores how well the estimated contract value sits inside the
// operator's target range. Values outside the range decay toward a floor
// rather than dropping to zero.
func valueFactor(value float64, profile *types.OperatorProfile) float64 {
	if value <= 0 {
		return 0.5
	}

	lo, hi := profile.TargetValueLow, profile.TargetValueHigh
	if lo <= 0 && hi <= 0 {
		return 0.5
	}

	switch {
	case value >= lo && value <= hi:
		return 1.0
	case value < lo:
		ratio := value / lo
		if ratio < 0.3 {
			return 0.3
		}
		return ratio
	default:
		ratio := hi / value
		if ratio < 0.2 {
			return 0.2
		}
		return ratio
	}
}

// geographyFactor prefers the operator's regions, tolerates nationwide
// solicitations, and penalizes everything else.
func geographyFactor(location string, profile *types.OperatorProfile) float64 {
	if location == "" {
		return 0.5
	}

	upper := strings.ToUpper(location)
	for _, region := range profile.PreferredRegions {
		if region != "" && strings.Contains(upper, strings.ToUpper(region)) {
			return 1.0
		}
	}
	if strings.Contains(upper, "CONUS") || strings.Contains(upper, "NATIONWIDE") {
		return 0.7
	}
	return 0.3
}

var (
	strongSetAsides = []string{"MINORITY", "WOMEN", "MBE", "WBE", "WOSB"}
	smallSetAsides  = []string{"SMALL BUSINESS", "SB", "SDVOSB"}
	openSetAsides   = []string{"UNRESTRICTED", "FULL AND OPEN"}
)

// setAsideFactor scores the competitive advantage a set-aside designation
// gives the operator. Minority and women-owned set-asides score highest,
// general small-business set-asides next, and fully open competitions lowest.
func setAsideFactor(setAside string) float64 {
	if setAside == "" {
		return 0.5
	}

	upper := strings.ToUpper(setAside)
	for _, s := range strongSetAsides {
		if strings.Contains(upper, s) {
			return 1.0
		}
	}
	for _, s := range smallSetAsides {
		if strings.Contains(upper, s) {
			return 0.8
		}
	}
	for _, s := range openSetAsides {
		if strings.Contains(upper, s) {
			return 0.4
		}
	}
	return 0.5
}
