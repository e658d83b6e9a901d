package fuzzy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrParse is matched by every *ParseError via errors.Is.
var ErrParse = errors.New("cannot parse interval")

// ParseError reports a cell whose content cannot be resolved to one, two or
// three numeric values.
type ParseError struct {
	Cell   string // raw cell content as received
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse interval from cell %q: %s", e.Cell, e.Reason)
}

// Is makes errors.Is(err, ErrParse) true for any *ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

type cellKind uint8

const (
	kindText cellKind = iota
	kindSeq
)

// Cell is a raw table cell. Spreadsheet loaders hand over text; programmatic
// callers may pass numbers or already-split sequences.
type Cell struct {
	kind   cellKind
	text   string
	values []float64
}

// TextCell wraps textual cell content such as "0.5", "[0.1, 0.2, 0.3]" or
// "0.1 0.3".
func TextCell(s string) Cell {
	return Cell{kind: kindText, text: s}
}

// NumberCell wraps a crisp numeric cell.
func NumberCell(v float64) Cell {
	return Cell{kind: kindSeq, values: []float64{v}}
}

// SeqCell wraps an already structured sequence of numbers.
func SeqCell(vs ...float64) Cell {
	cp := make([]float64, len(vs))
	copy(cp, vs)
	return Cell{kind: kindSeq, values: cp}
}

// String returns the cell content as it would appear in a table.
func (c Cell) String() string {
	if c.kind == kindText {
		return c.text
	}
	parts := make([]string, len(c.values))
	for i, v := range c.values {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ParseInterval converts a cell into its canonical TFN.
//
// Given k numeric values: k == 1 yields (v, v, v); k == 2 yields
// (lo, (lo+hi)/2, hi); k >= 3 uses the first three values and ignores the
// rest; k == 0 is a *ParseError. Text is stripped of surrounding brackets and
// split on commas and whitespace; any token that is not a float is a
// *ParseError naming the cell.
func ParseInterval(c Cell) (TFN, error) {
	vals := c.values
	if c.kind == kindText {
		var err error
		vals, err = splitNumbers(c.text)
		if err != nil {
			return TFN{}, &ParseError{Cell: c.text, Reason: err.Error()}
		}
	}

	switch {
	case len(vals) == 1:
		return Crisp(vals[0]), nil
	case len(vals) == 2:
		lo, hi := vals[0], vals[1]
		return TFN{Lo: lo, Mid: (lo + hi) / 2.0, Hi: hi}, nil
	case len(vals) >= 3:
		return TFN{Lo: vals[0], Mid: vals[1], Hi: vals[2]}, nil
	default:
		return TFN{}, &ParseError{Cell: c.String(), Reason: "no numeric values"}
	}
}

// splitNumbers strips bracket characters from both ends, then splits on
// commas and whitespace. Whitespace outside the brackets is not stripped, so
// " [1, 2] " fails. Overflowing tokens become ±Inf rather than an error.
func splitNumbers(s string) ([]float64, error) {
	s = strings.Trim(s, "()[]")
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	vals := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("token %q is not a number", tok)
		}
		vals = append(vals, v)
	}
	return vals, nil
}
