package core

// convert.go turns raw CSV cells into typed values.
//
// A blank cell is "absent": every parser returns an invalid pgtype value (or an
// invalid decimal.NullDecimal) for it, and an explicit 0 stays a valid zero.
// A present cell that cannot be parsed is a *FieldError. Controlled vocabularies
// are the exception: an unknown value is logged and treated as absent.

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/rosterimport/internal/logging"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006",
		"2006-01-02 15:04:05", time.RFC3339,
	}
	timeLayouts = []string{
		"15:04", "15:04:05", "3:04 PM", "3:04PM", "3:04:05 PM", "3:04:05PM",
	}
)

// ListSeparator splits multi-valued cells such as officer_ids.
const ListSeparator = "|"

// ParseString trims s and returns def when nothing is left.
func ParseString(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ParseDate parses a calendar date. Four-digit-year layouts win over
// two-digit ones.
func ParseDate(field, s string) (pgtype.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}, nil
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Date{Time: dateOnly(t), Valid: true}, nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: dateOnly(t), Valid: true}, nil
		}
	}

	return pgtype.Date{}, &FieldError{Field: field, Value: s, Message: "invalid date format (use YYYY-MM-DD or MM/DD/YYYY)"}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseTime parses a time of day as H:M or H:M:S, 24-hour or with AM/PM.
func ParseTime(field, s string) (pgtype.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Time{}, nil
	}

	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, strings.ToUpper(s))
		if err != nil {
			continue
		}
		d := time.Duration(t.Hour())*time.Hour +
			time.Duration(t.Minute())*time.Minute +
			time.Duration(t.Second())*time.Second
		return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}, nil
	}

	return pgtype.Time{}, &FieldError{Field: field, Value: s, Message: "invalid time format (use HH:MM or HH:MM:SS)"}
}

// ParseInt parses a whole number. "0" is a valid zero, not absent.
func ParseInt(field, s string) (pgtype.Int4, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Int4{}, nil
	}
	// Spreadsheet exports often write integers as "1990.0".
	s = strings.TrimSuffix(s, ".0")

	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return pgtype.Int4{}, &FieldError{Field: field, Value: s, Message: "invalid number format"}
	}
	return pgtype.Int4{Int32: int32(n), Valid: true}, nil
}

// ParseDecimal parses an amount. Currency symbols, thousands separators
// and accounting-style negatives "(12.50)" are accepted.
func ParseDecimal(field, s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	raw := s

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.NullDecimal{}, &FieldError{Field: field, Value: raw, Message: "invalid number format"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, &FieldError{Field: field, Value: raw, Message: "invalid number format"}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

// ParseBool accepts true/false, yes/no, t/f, y/n, on/off and 1/0.
// A blank cell is false.
func ParseBool(field, s string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "":
		return false, nil
	case "true", "t", "yes", "y", "1", "on":
		return true, nil
	case "false", "f", "no", "n", "0", "off":
		return false, nil
	default:
		return false, &FieldError{Field: field, Value: s, Message: "must be yes/no, true/false, or 1/0"}
	}
}

// ParseChoice matches s against a vocabulary by code or label, ignoring case,
// and returns the canonical code. Unknown values are logged and yield NULL.
func ParseChoice(ctx context.Context, field, s string, choices []Choice) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}

	if c, ok := MatchChoice(s, choices); ok {
		if c.Code == "" {
			return pgtype.Text{}
		}
		return pgtype.Text{String: c.Code, Valid: true}
	}

	logging.FromContext(ctx).Warn("value is not a valid choice",
		"field", field,
		"value", s,
		"choices", choiceCodes(choices),
	)
	return pgtype.Text{}
}

// ParseState validates a US state code or name and returns the 2-letter code.
func ParseState(field, s string) (pgtype.Text, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}, nil
	}
	code, ok := NormalizeState(s)
	if !ok {
		return pgtype.Text{}, &FieldError{Field: field, Value: s, Message: "not a valid US state"}
	}
	return pgtype.Text{String: code, Valid: true}, nil
}

// ParseURL requires an absolute http or https URL.
func ParseURL(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &FieldError{Field: field, Value: s, Message: "must be an http or https URL"}
	}
	return s, nil
}

// SplitList splits a multi-valued cell, dropping blank items.
func SplitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ListSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding double quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(strings.Trim(s, `"`))
}

// FormatDate renders a date for log and report output.
func FormatDate(d pgtype.Date) string {
	if !d.Valid {
		return "<null>"
	}
	return d.Time.Format("2006-01-02")
}

// FormatValue renders an optional value for error messages.
func FormatValue(v any) string {
	switch x := v.(type) {
	case pgtype.Text:
		if !x.Valid {
			return "<null>"
		}
		return x.String
	case pgtype.Int4:
		if !x.Valid {
			return "<null>"
		}
		return strconv.Itoa(int(x.Int32))
	case pgtype.Date:
		return FormatDate(x)
	default:
		return fmt.Sprint(v)
	}
}
