package models

import (
	"encoding/json"
	"testing"
)

func TestAnswerValueUnmarshalShapes(t *testing.T) {
	var a Answer

	if err := json.Unmarshal([]byte(`{"answer":"hello","was_jumped":false}`), &a); err != nil {
		t.Fatalf("unmarshal scalar: %v", err)
	}
	if a.Answer.Kind != AnswerScalar || a.Answer.Scalar != "hello" {
		t.Fatalf("unexpected scalar answer %+v", a.Answer)
	}

	if err := json.Unmarshal([]byte(`{"answer":["ref_1","ref_2"],"was_jumped":false}`), &a); err != nil {
		t.Fatalf("unmarshal refs: %v", err)
	}
	if a.Answer.Kind != AnswerMulti || len(a.Answer.Refs) != 2 {
		t.Fatalf("unexpected multi answer %+v", a.Answer)
	}

	if err := json.Unmarshal([]byte(`{"answer":{"latitude":51.507222,"longitude":-0.1275,"accuracy":4},"was_jumped":false}`), &a); err != nil {
		t.Fatalf("unmarshal location: %v", err)
	}
	if a.Answer.Kind != AnswerLocation || a.Answer.Location.Latitude != 51.507222 {
		t.Fatalf("unexpected location answer %+v", a.Answer)
	}

	if err := json.Unmarshal([]byte(`{"answer":"","was_jumped":true}`), &a); err != nil {
		t.Fatalf("unmarshal empty: %v", err)
	}
	if !a.Answer.IsEmpty() || !a.WasJumped {
		t.Fatalf("unexpected empty answer %+v", a)
	}
}

func TestAnswerValueDecimalStaysString(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte(`{"answer":1.10,"was_jumped":false}`), &a); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if a.Answer.Scalar != "1.10" {
		t.Fatalf("decimal literal should be preserved verbatim, got %q", a.Answer.Scalar)
	}

	out, err := json.Marshal(a.Answer)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"1.10"` {
		t.Fatalf("decimal should serialize as string, got %s", out)
	}
}

func TestAnswerValueRoundTrip(t *testing.T) {
	original := Answer{Answer: MultiAnswer("ref_a", "ref_b")}
	raw, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Answer
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Answer.Kind != AnswerMulti || decoded.Answer.Refs[1] != "ref_b" {
		t.Fatalf("round trip lost data: %+v", decoded.Answer)
	}
}

func TestDocumentSerializeParse(t *testing.T) {
	doc := Document{
		Type: "entry",
		ID:   "uuid-1",
		Attributes: DocAttributes{
			Form: DocForm{Ref: "form_0", Type: "hierarchy"},
		},
		Entry: &DocumentEntry{
			EntryUUID: "uuid-1",
			Title:     "A title",
			Answers: map[string]Answer{
				"in_1": {Answer: ScalarAnswer("yes")},
			},
		},
	}

	raw, err := doc.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	parsed, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	payload := parsed.Payload()
	if payload == nil || payload.EntryUUID != "uuid-1" {
		t.Fatalf("payload lost on round trip: %+v", parsed)
	}
	if payload.Answers["in_1"].Answer.Scalar != "yes" {
		t.Fatalf("answer lost on round trip")
	}
}

func TestRoundCoord(t *testing.T) {
	if got := RoundCoord(51.5072221234); got != 51.507222 {
		t.Fatalf("unexpected rounding: %v", got)
	}
	if got := RoundCoord(-0.12750009); got != -0.1275 {
		t.Fatalf("unexpected rounding: %v", got)
	}
}
