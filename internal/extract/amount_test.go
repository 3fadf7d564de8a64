package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  float64
		ok    bool
	}{
		{"lux dot grouping", "517.400.000", 517400000, true},
		{"space grouping", "1 234 567", 1234567, true},
		{"comma decimal", "1.234.567,89", 1234567.89, true},
		{"anglo grouping", "1,234,567.89", 1234567.89, true},
		{"comma thousands only", "517,400,000", 517400000, true},
		{"plain decimal", "1234.56", 1234.56, true},
		{"comma as decimal", "345,67", 345.67, true},
		{"accounting negative", "(1.000)", -1000, true},
		{"minus sign", "-2500", -2500, true},
		{"apostrophe grouping", "1'234'567", 1234567, true},
		{"bare integer", "800", 800, true},
		{"bare zero", "0", 0, true},
		{"garbage", "abc", 0, false},
		{"empty", "", 0, false},
		{"ambiguous dots", "12.34.5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAmount(tt.token)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestFirstAmount(t *testing.T) {
	tests := []struct {
		name string
		line string
		from int
		want float64
		ok   bool
	}{
		{"amount after caption", "Total assets   12.345.678", 12, 12345678, true},
		{"note ref ignored", "Autres produits (Note 6)   900.000", 0, 900000, true},
		{"currency marker ignored", "Créances EUR 517.400.000", 8, 517400000, true},
		{"current column wins", "Chiffre d'affaires net   4.000.000   3.500.000", 22, 4000000, true},
		{"space grouped columns", "Autres charges externes   1 234 000   1 100 000", 0, 1234000, true},
		{"space grouped decimal columns", "Résultat financier   12 345,67   11 000,00", 0, 12345.67, true},
		{"zero in current column", "Produits divers   0   1.500", 0, 0, true},
		{"no amount", "Chiffre d'affaires net", 0, 0, false},
		{"offset beyond line", "abc", 10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := firstAmount(tt.line, tt.from)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestFindNoteRef(t *testing.T) {
	assert.Equal(t, "Note 6", findNoteRef("Autres produits d'exploitation (Note 6)  1.000"))
	assert.Equal(t, "Note 12", findNoteRef("see note 12 for detail"))
	assert.Equal(t, "", findNoteRef("no citation here"))
}
