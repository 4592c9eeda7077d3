package models

import "fmt"

// Input types
const (
	InputText           = "text"
	InputTextarea       = "textarea"
	InputInteger        = "integer"
	InputDecimal        = "decimal"
	InputPhone          = "phone"
	InputDate           = "date"
	InputTime           = "time"
	InputLocation       = "location"
	InputRadio          = "radio"
	InputDropdown       = "dropdown"
	InputCheckbox       = "checkbox"
	InputSearchSingle   = "searchsingle"
	InputSearchMultiple = "searchmultiple"
	InputBarcode        = "barcode"
	InputPhoto          = "photo"
	InputAudio          = "audio"
	InputVideo          = "video"
	InputGroup          = "group"
	InputBranch         = "branch"
	InputReadme         = "readme"
)

// Uniqueness scopes. ScopeEntry is kept for round-tripping stored
// definitions but behaves like ScopeNone at validation time.
const (
	ScopeNone      = "none"
	ScopeEntry     = "entry"
	ScopeHierarchy = "hierarchy"
	ScopeProject   = "project"
)

type PossibleAnswer struct {
	Answer    string `json:"answer" bson:"answer"`
	AnswerRef string `json:"answer_ref" bson:"answer_ref"`
}

// Input is one node of a form's schema. Only group and branch inputs carry
// nested Inputs, and those children are always leaves.
type Input struct {
	Ref             string           `json:"ref" bson:"ref"`
	Type            string           `json:"type" bson:"type"`
	Question        string           `json:"question" bson:"question"`
	IsTitle         bool             `json:"is_title" bson:"is_title"`
	Uniqueness      string           `json:"uniqueness" bson:"uniqueness"`
	DateFormat      string           `json:"datetime_format,omitempty" bson:"datetime_format,omitempty"`
	PossibleAnswers []PossibleAnswer `json:"possible_answers,omitempty" bson:"possible_answers,omitempty"`
	Inputs          []Input          `json:"branch,omitempty" bson:"branch,omitempty"`
}

func (in *Input) IsContainer() bool {
	return in.Type == InputGroup || in.Type == InputBranch
}

// ProducesAnswer reports whether this input itself holds an answer value.
// Containers and readme blocks never do.
func (in *Input) ProducesAnswer() bool {
	return !in.IsContainer() && in.Type != InputReadme
}

func (in *Input) IsMultipleChoice() bool {
	switch in.Type {
	case InputRadio, InputDropdown, InputCheckbox, InputSearchSingle, InputSearchMultiple:
		return true
	}
	return false
}

func (in *Input) IsMedia() bool {
	switch in.Type {
	case InputPhoto, InputAudio, InputVideo:
		return true
	}
	return false
}

// AnswerLabel resolves a stored answer ref to its human-readable text.
func (in *Input) AnswerLabel(answerRef string) (string, bool) {
	for _, pa := range in.PossibleAnswers {
		if pa.AnswerRef == answerRef {
			return pa.Answer, true
		}
	}
	return "", false
}

// ValidateTree enforces the structural invariants of a form's inputs: only
// containers nest children, children are one level deep, and a branch never
// holds another branch or group.
func ValidateTree(inputs []Input) error {
	for i := range inputs {
		in := &inputs[i]
		if !in.IsContainer() && len(in.Inputs) > 0 {
			return fmt.Errorf("input %s: type %s cannot hold nested inputs", in.Ref, in.Type)
		}
		for j := range in.Inputs {
			child := &in.Inputs[j]
			if child.IsContainer() {
				return fmt.Errorf("input %s: nested %s inside %s", child.Ref, child.Type, in.Type)
			}
			if len(child.Inputs) > 0 {
				return fmt.Errorf("input %s: nesting deeper than one level", child.Ref)
			}
		}
	}
	return nil
}
