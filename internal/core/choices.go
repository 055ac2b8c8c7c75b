package core

import "golang.org/x/text/cases"

// Choice is one entry of a controlled vocabulary. Code is what gets stored,
// Label is what people usually type.
type Choice struct {
	Code  string
	Label string
}

var (
	GenderChoices = []Choice{
		{Code: "Not Sure", Label: "Not Sure"},
		{Code: "M", Label: "Male"},
		{Code: "F", Label: "Female"},
		{Code: "Other", Label: "Other"},
	}

	RaceChoices = []Choice{
		{Code: "BLACK", Label: "Black"},
		{Code: "WHITE", Label: "White"},
		{Code: "ASIAN", Label: "Asian"},
		{Code: "HISPANIC", Label: "Hispanic"},
		{Code: "NATIVE AMERICAN", Label: "Native American"},
		{Code: "PACIFIC ISLANDER", Label: "Pacific Islander"},
		{Code: "Other", Label: "Other"},
		{Code: "Not Sure", Label: "Not Sure"},
	}

	SuffixChoices = []Choice{
		{Code: "", Label: "-"},
		{Code: "Jr", Label: "Jr"},
		{Code: "Sr", Label: "Sr"},
		{Code: "II", Label: "II"},
		{Code: "III", Label: "III"},
		{Code: "IV", Label: "IV"},
		{Code: "V", Label: "V"},
	}

	LinkCategoryChoices = []Choice{
		{Code: "link", Label: "Link"},
		{Code: "video", Label: "YouTube Video"},
		{Code: "other_video", Label: "Other Video"},
	}
)

// FoldName case-folds a trimmed name for case-insensitive lookups.
// A Caser is stateful, so each call gets its own.
func FoldName(s string) string {
	return cases.Fold().String(ParseString(s, ""))
}

// MatchChoice finds the vocabulary entry whose code or label equals s,
// ignoring case.
func MatchChoice(s string, choices []Choice) (Choice, bool) {
	key := FoldName(s)
	for _, c := range choices {
		if key == FoldName(c.Code) || key == FoldName(c.Label) {
			return c, true
		}
	}
	return Choice{}, false
}

func choiceCodes(choices []Choice) []string {
	codes := make([]string, 0, len(choices))
	for _, c := range choices {
		if c.Code != "" {
			codes = append(codes, c.Code)
		}
	}
	return codes
}
