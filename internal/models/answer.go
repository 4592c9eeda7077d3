package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AnswerKind tags the closed set of shapes an answer value can take.
type AnswerKind int

const (
	AnswerEmpty AnswerKind = iota
	AnswerScalar
	AnswerMulti
	AnswerLocation
)

// Location answers keep lat/lon as floats for arithmetic; rendering rounds
// coordinates to 6 decimal digits.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// AnswerValue is the typed answer payload: a scalar (text, numeric, date,
// time, barcode or media filename — numerics travel as strings so decimals
// never round-trip through floats), a list of possible-answer refs, or a
// location. The zero value is the empty answer.
type AnswerValue struct {
	Kind     AnswerKind
	Scalar   string
	Refs     []string
	Location Location
}

type Answer struct {
	Answer    AnswerValue `json:"answer"`
	WasJumped bool        `json:"was_jumped"`
}

func ScalarAnswer(s string) AnswerValue {
	if s == "" {
		return AnswerValue{}
	}
	return AnswerValue{Kind: AnswerScalar, Scalar: s}
}

func MultiAnswer(refs ...string) AnswerValue {
	return AnswerValue{Kind: AnswerMulti, Refs: refs}
}

func LocationAnswer(lat, lon, acc float64) AnswerValue {
	return AnswerValue{Kind: AnswerLocation, Location: Location{Latitude: lat, Longitude: lon, Accuracy: acc}}
}

func (v AnswerValue) IsEmpty() bool {
	switch v.Kind {
	case AnswerScalar:
		return v.Scalar == ""
	case AnswerMulti:
		return len(v.Refs) == 0
	case AnswerLocation:
		return false
	}
	return true
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerScalar:
		return json.Marshal(v.Scalar)
	case AnswerMulti:
		return json.Marshal(v.Refs)
	case AnswerLocation:
		return json.Marshal(v.Location)
	default:
		return json.Marshal("")
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	switch t := raw.(type) {
	case nil:
		*v = AnswerValue{}
	case string:
		*v = ScalarAnswer(t)
	case json.Number:
		*v = AnswerValue{Kind: AnswerScalar, Scalar: t.String()}
	case []any:
		refs := make([]string, 0, len(t))
		for _, el := range t {
			s, ok := el.(string)
			if !ok {
				return fmt.Errorf("answer ref list holds a non-string element")
			}
			refs = append(refs, s)
		}
		*v = AnswerValue{Kind: AnswerMulti, Refs: refs}
	case map[string]any:
		loc := Location{}
		var err error
		if loc.Latitude, err = jsonFloat(t["latitude"]); err != nil {
			return fmt.Errorf("location latitude: %w", err)
		}
		if loc.Longitude, err = jsonFloat(t["longitude"]); err != nil {
			return fmt.Errorf("location longitude: %w", err)
		}
		if acc, ok := t["accuracy"]; ok {
			if loc.Accuracy, err = jsonFloat(acc); err != nil {
				return fmt.Errorf("location accuracy: %w", err)
			}
		}
		*v = AnswerValue{Kind: AnswerLocation, Location: loc}
	default:
		return fmt.Errorf("unsupported answer shape %T", raw)
	}
	return nil
}

func jsonFloat(v any) (float64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Float64()
	case string:
		n := json.Number(t)
		return n.Float64()
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
