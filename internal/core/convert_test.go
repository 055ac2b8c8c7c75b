package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseDecimal Tests
// ----------------------------------------------------------------------------

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue string
		wantErr   bool
	}{
		// Absent
		{name: "empty", input: "", wantValid: false},
		{name: "whitespace only", input: "   ", wantValid: false},

		// Valid
		{name: "integer", input: "65000", wantValid: true, wantValue: "65000"},
		{name: "explicit zero", input: "0", wantValid: true, wantValue: "0"},
		{name: "cents kept", input: "1200.50", wantValid: true, wantValue: "1200.5"},
		{name: "currency and thousands", input: "$1,234.56", wantValid: true, wantValue: "1234.56"},
		{name: "accounting negative", input: "(12.50)", wantValid: true, wantValue: "-12.5"},
		{name: "leading dot", input: ".75", wantValid: true, wantValue: "0.75"},
		{name: "high precision", input: "0.123456789012", wantValid: true, wantValue: "0.123456789012"},

		// Invalid
		{name: "letters", input: "abc", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
		{name: "trailing text", input: "100 USD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal("amount", tt.input)
			if tt.wantErr {
				var fe *FieldError
				if !errors.As(err, &fe) {
					t.Fatalf("ParseDecimal(%q) error = %v, want *FieldError", tt.input, err)
				}
				if fe.Field != "amount" {
					t.Errorf("FieldError.Field = %q, want %q", fe.Field, "amount")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimal(%q) unexpected error: %v", tt.input, err)
			}
			if got.Valid != tt.wantValid {
				t.Fatalf("ParseDecimal(%q).Valid = %v, want %v", tt.input, got.Valid, tt.wantValid)
			}
			if tt.wantValid && got.Decimal.String() != tt.wantValue {
				t.Errorf("ParseDecimal(%q) = %s, want %s", tt.input, got.Decimal.String(), tt.wantValue)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string // YYYY-MM-DD, empty for absent
		wantErr bool
	}{
		{name: "empty", input: ""},
		{name: "ISO", input: "2021-06-01", want: "2021-06-01"},
		{name: "slashes ISO", input: "2021/06/01", want: "2021-06-01"},
		{name: "US", input: "6/1/2021", want: "2021-06-01"},
		{name: "US padded", input: "06/01/2021", want: "2021-06-01"},
		{name: "month name", input: "June 1, 2021", want: "2021-06-01"},
		{name: "timestamp drops time", input: "2021-06-01 13:45:00", want: "2021-06-01"},
		{name: "RFC3339", input: "2021-06-01T23:30:00Z", want: "2021-06-01"},
		{name: "invalid month", input: "2021-13-01", wantErr: true},
		{name: "text", input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate("start_date", tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if tt.want == "" {
				if got.Valid {
					t.Errorf("ParseDate(%q) = %v, want absent", tt.input, got.Time)
				}
				return
			}
			if s := FormatDate(got); s != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, s, tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	pivot := time.Now().Year() + TwoDigitYearPivot

	got, err := ParseDate("date", "3/4/99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if y := got.Time.Year(); y > pivot || y%100 != 99 {
		t.Errorf("year = %d, want a year ending in 99 no later than %d", y, pivot)
	}

	got, err = ParseDate("date", "3/4/05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if y := got.Time.Year(); y != 2005 {
		t.Errorf("year = %d, want 2005", y)
	}
}

// ----------------------------------------------------------------------------
// ParseTime Tests
// ----------------------------------------------------------------------------

func TestParseTime(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		absent  bool
		wantErr bool
	}{
		{input: "", absent: true},
		{input: "14:30", want: 14*time.Hour + 30*time.Minute},
		{input: "14:30:15", want: 14*time.Hour + 30*time.Minute + 15*time.Second},
		{input: "2:30 pm", want: 14*time.Hour + 30*time.Minute},
		{input: "12:05AM", want: 5 * time.Minute},
		{input: "25:00", wantErr: true},
		{input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTime("time", tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTime(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTime(%q) unexpected error: %v", tt.input, err)
			}
			if got.Valid == tt.absent {
				t.Fatalf("ParseTime(%q).Valid = %v", tt.input, got.Valid)
			}
			if !tt.absent && got.Microseconds != tt.want.Microseconds() {
				t.Errorf("ParseTime(%q) = %dus, want %dus", tt.input, got.Microseconds, tt.want.Microseconds())
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseInt / ParseBool Tests
// ----------------------------------------------------------------------------

func TestParseInt(t *testing.T) {
	tests := []struct {
		input     string
		want      int32
		wantValid bool
		wantErr   bool
	}{
		{input: "", wantValid: false},
		{input: "0", want: 0, wantValid: true},
		{input: "1990", want: 1990, wantValid: true},
		{input: "1990.0", want: 1990, wantValid: true},
		{input: "1990.5", wantErr: true},
		{input: "nineteen", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInt("birth_year", tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInt(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Valid != tt.wantValid || got.Int32 != tt.want {
				t.Errorf("ParseInt(%q) = %+v, want %d (valid=%v)", tt.input, got, tt.want, tt.wantValid)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	truthy := []string{"true", "TRUE", "t", "yes", "Y", "1", "on"}
	falsy := []string{"", "false", "F", "no", "n", "0", "off"}

	for _, s := range truthy {
		if got, err := ParseBool("is_fiscal_year", s); err != nil || !got {
			t.Errorf("ParseBool(%q) = %v, %v; want true", s, got, err)
		}
	}
	for _, s := range falsy {
		if got, err := ParseBool("is_fiscal_year", s); err != nil || got {
			t.Errorf("ParseBool(%q) = %v, %v; want false", s, got, err)
		}
	}
	if _, err := ParseBool("is_fiscal_year", "maybe"); err == nil {
		t.Error("ParseBool(\"maybe\") expected error")
	}
}

// ----------------------------------------------------------------------------
// ParseChoice / ParseState / ParseURL Tests
// ----------------------------------------------------------------------------

func TestParseChoice(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		input   string
		choices []Choice
		want    string
		valid   bool
	}{
		{"Female", GenderChoices, "F", true},
		{"f", GenderChoices, "F", true},
		{"white", RaceChoices, "WHITE", true},
		{"Native American", RaceChoices, "NATIVE AMERICAN", true},
		{"Jr", SuffixChoices, "Jr", true},
		{"-", SuffixChoices, "", false},
		{"YouTube Video", LinkCategoryChoices, "video", true},
		{"unknown", RaceChoices, "", false},
		{"", GenderChoices, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseChoice(ctx, "field", tt.input, tt.choices)
			if got.Valid != tt.valid || got.String != tt.want {
				t.Errorf("ParseChoice(%q) = %+v, want %q (valid=%v)", tt.input, got, tt.want, tt.valid)
			}
		})
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"IL", "IL", false},
		{"il", "IL", false},
		{"Illinois", "IL", false},
		{" new york ", "NY", false},
		{"", "", false},
		{"Atlantis", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseState("state", tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseState(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got.String != tt.want {
				t.Errorf("ParseState(%q) = %q, want %q", tt.input, got.String, tt.want)
			}
		})
	}
}

func TestParseURL(t *testing.T) {
	valid := []string{"https://example.org/a?b=c", "http://news.example.com"}
	invalid := []string{"", "example.org", "ftp://example.org/file", "https://"}

	for _, s := range valid {
		if _, err := ParseURL("url", s); err != nil {
			t.Errorf("ParseURL(%q) unexpected error: %v", s, err)
		}
	}
	for _, s := range invalid {
		if _, err := ParseURL("url", s); err == nil {
			t.Errorf("ParseURL(%q) expected error", s)
		}
	}
}

// ----------------------------------------------------------------------------
// SplitList / ToPgText Tests
// ----------------------------------------------------------------------------

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"   ", nil},
		{"1", []string{"1"}},
		{"1|#a|3", []string{"1", "#a", "3"}},
		{" 1 || 2 |", []string{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SplitList(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitList(%q) = %q, want %q", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SplitList(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestToPgText(t *testing.T) {
	if got := ToPgText("  "); got.Valid {
		t.Errorf("ToPgText(blank) = %+v, want invalid", got)
	}
	if got := ToPgText(" Lee "); !got.Valid || got.String != "Lee" {
		t.Errorf("ToPgText(\" Lee \") = %+v, want Lee", got)
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple string unchanged", input: "hello", want: "hello"},
		{name: "empty string", input: "", want: ""},
		{name: "surrounded by whitespace", input: "  hello  ", want: "hello"},
		{name: "Excel formula with quotes", input: `="12345"`, want: "12345"},
		{name: "double quotes removed", input: `"hello"`, want: "hello"},
		{name: "whitespace and quotes", input: `  "hello"  `, want: "hello"},
		{name: "only quotes", input: `""`, want: ""},
		{name: "equals with quoted zero", input: `="0"`, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// FormatValue Tests
// ----------------------------------------------------------------------------

func TestFormatValue(t *testing.T) {
	year, _ := ParseInt("birth_year", "1990")
	date, _ := ParseDate("employment_date", "2001-02-03")

	tests := []struct {
		in   any
		want string
	}{
		{ToPgText(""), "<null>"},
		{ToPgText("A-1"), "A-1"},
		{year, "1990"},
		{date, "2001-02-03"},
		{42, "42"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
