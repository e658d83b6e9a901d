package fuzzy

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want TFN
	}{
		{"bare number", TextCell("0.5"), Crisp(0.5)},
		{"negative number", TextCell("-0.25"), Crisp(-0.25)},
		{"number cell", NumberCell(0.3), Crisp(0.3)},
		{"pair synthesizes mid", TextCell("[0.2, 0.6]"), TFN{Lo: 0.2, Mid: 0.4, Hi: 0.6}},
		{"pair whitespace", TextCell("0.2 0.6"), TFN{Lo: 0.2, Mid: 0.4, Hi: 0.6}},
		{"triple brackets", TextCell("[0.1,0.2,0.3]"), TFN{Lo: 0.1, Mid: 0.2, Hi: 0.3}},
		{"triple parens", TextCell("(0.1, 0.2, 0.3)"), TFN{Lo: 0.1, Mid: 0.2, Hi: 0.3}},
		{"mixed separators", TextCell("0.1,  0.2\t0.3"), TFN{Lo: 0.1, Mid: 0.2, Hi: 0.3}},
		{"extra values ignored", TextCell("[1, 2, 3, 4, 5]"), TFN{Lo: 1, Mid: 2, Hi: 3}},
		{"nested brackets", TextCell("[[0.1, 0.2, 0.3]]"), TFN{Lo: 0.1, Mid: 0.2, Hi: 0.3}},
		{"inverted kept as is", TextCell("[0.9, 0.1, 0.5]"), TFN{Lo: 0.9, Mid: 0.1, Hi: 0.5}},
		{"inverted pair", TextCell("[1, -1]"), TFN{Lo: 1, Mid: 0, Hi: -1}},
		{"scientific", TextCell("1e-3"), Crisp(0.001)},
		{"padded number", TextCell(" 0.5 "), Crisp(0.5)},
		{"padding inside brackets", TextCell("[ 0.2, 0.6 ]"), TFN{Lo: 0.2, Mid: 0.4, Hi: 0.6}},
		{"underflow is zero", TextCell("1e-400"), Crisp(0)},
		{"seq pair", SeqCell(0, 1), TFN{Lo: 0, Mid: 0.5, Hi: 1}},
		{"seq triple", SeqCell(0.1, 0.2, 0.3), TFN{Lo: 0.1, Mid: 0.2, Hi: 0.3}},
		{"seq four", SeqCell(4, 3, 2, 1), TFN{Lo: 4, Mid: 3, Hi: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInterval(tt.cell)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Lo, got.Lo, 1e-12)
			assert.InDelta(t, tt.want.Mid, got.Mid, 1e-12)
			assert.InDelta(t, tt.want.Hi, got.Hi, 1e-12)
		})
	}
}

func TestParseInterval_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cell    Cell
		mention string
	}{
		{"word", TextCell("abc"), "abc"},
		{"partial number", TextCell("[0.1, x, 0.3]"), "[0.1, x, 0.3]"},
		{"empty text", TextCell(""), "no numeric values"},
		{"only brackets", TextCell("[]"), "no numeric values"},
		{"padding outside brackets", TextCell(" [1, 2] "), "[1"},
		{"empty sequence", SeqCell(), "no numeric values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInterval(tt.cell)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.True(t, errors.Is(err, ErrParse))
			assert.True(t, strings.Contains(err.Error(), tt.mention),
				"error %q should mention %q", err.Error(), tt.mention)
		})
	}
}

func TestParseInterval_MalformedCellIsNotZero(t *testing.T) {
	got, err := ParseInterval(TextCell("abc"))
	require.Error(t, err)
	assert.Equal(t, TFN{}, got)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "abc", pe.Cell)
}

func TestParseInterval_RoundTrip(t *testing.T) {
	cells := []Cell{
		TextCell("0.3"),
		TextCell("[0.1, 0.7]"),
		TextCell("(0.123456789, 0.2, 0.99)"),
		TextCell("[-0.4 -0.1 0.2]"),
		SeqCell(1.0/3.0, 2.0/3.0),
	}

	for _, c := range cells {
		t.Run(c.String(), func(t *testing.T) {
			first, err := ParseInterval(c)
			require.NoError(t, err)

			second, err := ParseInterval(TextCell(first.String()))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestParseInterval_NonFinite(t *testing.T) {
	tests := []struct {
		name  string
		cell  string
		check func(float64) bool
	}{
		{"nan", "nan", math.IsNaN},
		{"inf", "inf", func(v float64) bool { return math.IsInf(v, 1) }},
		{"overflow", "1e400", func(v float64) bool { return math.IsInf(v, 1) }},
		{"negative overflow", "-1e400", func(v float64) bool { return math.IsInf(v, -1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInterval(TextCell(tt.cell))
			require.NoError(t, err)
			assert.True(t, tt.check(got.Lo) && tt.check(got.Mid) && tt.check(got.Hi), "got %v", got)
		})
	}
}
