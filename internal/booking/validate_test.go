package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/hospital-assistant/internal/hospital"
)

func TestValidateName(t *testing.T) {
	valid := []string{"Asha Rao", "  J. R. R. Tolkien ", "आशा राव", "Ramesh Kumar"}
	for _, name := range valid {
		assert.True(t, ValidateName(name), name)
	}
	invalid := []string{"", "   ", "R2D2", "asha@rao", "O'Brien"}
	for _, name := range invalid {
		assert.False(t, ValidateName(name), name)
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9876543210", "9876543210", true},
		{"98765 43210", "9876543210", true},
		{"+91-98765-43210", "", false},
		{"(987) 654-3210", "9876543210", true},
		{"९८७६५४३२१०", "9876543210", true},
		{"12345", "", false},
		{"98765432101", "", false},
	}
	for _, tt := range tests {
		got, ok := ValidatePhone(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestConfirmWords(t *testing.T) {
	for _, w := range []string{"yes", "Yes!", "haan", "ho", "हाँ"} {
		assert.True(t, IsYes(w), w)
		assert.False(t, IsNo(w), w)
	}
	for _, w := range []string{"no", "No.", "nahi", "nko", "नहीं"} {
		assert.True(t, IsNo(w), w)
		assert.False(t, IsYes(w), w)
	}
	assert.False(t, IsYes("maybe"))
	assert.False(t, IsNo("maybe"))
}

func TestMatchDoctors(t *testing.T) {
	docs := []hospital.Doctor{
		{ID: "1", Name: hospital.LocalizedName{En: "Dr. Imran Khan", Hi: "डॉ. इमरान खान"}},
		{ID: "2", Name: hospital.LocalizedName{En: "Dr. Priya Mehta"}},
		{ID: "3", Name: hospital.LocalizedName{En: "Dr. Salman Khan"}},
	}

	ids := func(ds []hospital.Doctor) []string {
		var out []string
		for _, d := range ds {
			out = append(out, d.ID.String())
		}
		return out
	}

	assert.Equal(t, []string{"2"}, ids(MatchDoctors(docs, "mehta")))
	assert.Equal(t, []string{"2"}, ids(MatchDoctors(docs, "Dr. Priya")))
	assert.Equal(t, []string{"1", "3"}, ids(MatchDoctors(docs, "khan")))
	assert.Equal(t, []string{"1"}, ids(MatchDoctors(docs, "imran khan sahab")))
	assert.Equal(t, []string{"1"}, ids(MatchDoctors(docs, "इमरान")))
	assert.Empty(t, MatchDoctors(docs, "house"))
	// Empty localized names never match everything.
	assert.Empty(t, MatchDoctors(docs, "dr."))
}
