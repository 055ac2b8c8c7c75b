package core

import (
	"sort"
	"strings"
)

// usStateNames maps lower-cased US state names to their postal abbreviations.
var usStateNames = map[string]string{
	"alabama":        "AL",
	"alaska":         "AK",
	"arizona":        "AZ",
	"arkansas":       "AR",
	"california":     "CA",
	"colorado":       "CO",
	"connecticut":    "CT",
	"delaware":       "DE",
	"florida":        "FL",
	"georgia":        "GA",
	"hawaii":         "HI",
	"idaho":          "ID",
	"illinois":       "IL",
	"indiana":        "IN",
	"iowa":           "IA",
	"kansas":         "KS",
	"kentucky":       "KY",
	"louisiana":      "LA",
	"maine":          "ME",
	"maryland":       "MD",
	"massachusetts":  "MA",
	"michigan":       "MI",
	"minnesota":      "MN",
	"mississippi":    "MS",
	"missouri":       "MO",
	"montana":        "MT",
	"nebraska":       "NE",
	"nevada":         "NV",
	"new hampshire":  "NH",
	"new jersey":     "NJ",
	"new mexico":     "NM",
	"new york":       "NY",
	"north carolina": "NC",
	"north dakota":   "ND",
	"ohio":           "OH",
	"oklahoma":       "OK",
	"oregon":         "OR",
	"pennsylvania":   "PA",
	"rhode island":   "RI",
	"south carolina": "SC",
	"south dakota":   "SD",
	"tennessee":      "TN",
	"texas":          "TX",
	"utah":           "UT",
	"vermont":        "VT",
	"virginia":       "VA",
	"washington":     "WA",
	"west virginia":  "WV",
	"wisconsin":      "WI",
	"wyoming":        "WY",

	"district of columbia": "DC",
}

// extraStateCodes are accepted codes that are not states.
var extraStateCodes = []string{"FA"} // federal agency

var stateCodes = func() map[string]bool {
	codes := make(map[string]bool, len(usStateNames)+len(extraStateCodes))
	for _, code := range usStateNames {
		codes[code] = true
	}
	for _, code := range extraStateCodes {
		codes[code] = true
	}
	return codes
}()

// NormalizeState converts a state name or code to its 2-letter code.
// The second return value is false when the input is not recognized.
func NormalizeState(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if code, ok := usStateNames[strings.ToLower(s)]; ok {
		return code, true
	}
	upper := strings.ToUpper(s)
	if stateCodes[upper] {
		return upper, true
	}
	return s, false
}

// StateCodes returns every accepted code, sorted.
func StateCodes() []string {
	codes := make([]string, 0, len(stateCodes))
	for code := range stateCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
