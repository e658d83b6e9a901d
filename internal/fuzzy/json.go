package fuzzy

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// JSONFloat is a float64 whose JSON form keeps NaN and the infinities, which
// encoding/json rejects. They are written as the strings "NaN", "Infinity"
// and "-Infinity"; finite values stay plain numbers.
type JSONFloat float64

// MarshalJSON implements json.Marshaler.
func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts plain numbers and the
// three strings written by MarshalJSON.
func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = JSONFloat(math.NaN())
		case "Infinity":
			*f = JSONFloat(math.Inf(1))
		case "-Infinity":
			*f = JSONFloat(math.Inf(-1))
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}

// tfnJSON is the wire form of a TFN.
type tfnJSON struct {
	Lo  JSONFloat `json:"lo"`
	Mid JSONFloat `json:"mid"`
	Hi  JSONFloat `json:"hi"`
}

// MarshalJSON encodes t as {"lo":…,"mid":…,"hi":…}, non-finite components
// included.
func (t TFN) MarshalJSON() ([]byte, error) {
	return json.Marshal(tfnJSON{Lo: JSONFloat(t.Lo), Mid: JSONFloat(t.Mid), Hi: JSONFloat(t.Hi)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TFN) UnmarshalJSON(data []byte) error {
	var v tfnJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = TFN{Lo: float64(v.Lo), Mid: float64(v.Mid), Hi: float64(v.Hi)}
	return nil
}
