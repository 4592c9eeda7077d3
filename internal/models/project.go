package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Project access
const (
	AccessPublic  = "public"
	AccessPrivate = "private"
)

// Project status
const (
	StatusActive   = "active"
	StatusLocked   = "locked"
	StatusArchived = "archived"
	StatusTrashed  = "trashed"
)

type Project struct {
	ID         bson.ObjectID     `json:"id" bson:"_id,omitempty"`
	Ref        string            `json:"ref" bson:"ref"`
	Slug       string            `json:"slug" bson:"slug"`
	Name       string            `json:"name" bson:"name"`
	Access     string            `json:"access" bson:"access"`
	Status     string            `json:"status" bson:"status"`
	Version    string            `json:"version" bson:"version"`
	Definition ProjectDefinition `json:"definition" bson:"definition"`
	Stats      ProjectStats      `json:"stats" bson:"stats"`
	CreatedAt  time.Time         `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time         `json:"updatedAt" bson:"updated_at"`
}

type ProjectStats struct {
	TotalEntries   int64            `json:"totalEntries" bson:"total_entries"`
	FormCounts     map[string]int64 `json:"formCounts" bson:"form_counts"`
	BranchCounts   map[string]int64 `json:"branchCounts" bson:"branch_counts"`
	LastEntryAdded *time.Time       `json:"lastEntryAdded,omitempty" bson:"last_entry_added,omitempty"`
}

// ProjectDefinition is the declarative schema: the ordered hierarchy forms
// and, per form, the ordered input tree.
type ProjectDefinition struct {
	Forms []Form `json:"forms" bson:"forms"`
}

type Form struct {
	Ref       string  `json:"ref" bson:"ref"`
	Name      string  `json:"name" bson:"name"`
	Slug      string  `json:"slug" bson:"slug"`
	ParentRef string  `json:"parentRef,omitempty" bson:"parent_ref,omitempty"`
	Inputs    []Input `json:"inputs" bson:"inputs"`
}

func (p *Project) IsPrivate() bool {
	return p.Access == AccessPrivate
}

// ValidateDefinition checks the structural invariants of every form's
// input tree. A stored definition that fails this never reaches the
// builder or the mapping engine.
func (p *Project) ValidateDefinition() error {
	for i := range p.Definition.Forms {
		form := &p.Definition.Forms[i]
		if err := ValidateTree(form.Inputs); err != nil {
			return fmt.Errorf("form %s: %w", form.Ref, err)
		}
	}
	return nil
}

// FirstFormRef returns the ref of the hierarchy root form (form 0), or ""
// for an empty definition.
func (p *Project) FirstFormRef() string {
	if len(p.Definition.Forms) == 0 {
		return ""
	}
	return p.Definition.Forms[0].Ref
}

func (p *Project) FormByRef(formRef string) *Form {
	for i := range p.Definition.Forms {
		if p.Definition.Forms[i].Ref == formRef {
			return &p.Definition.Forms[i]
		}
	}
	return nil
}

// BranchInput locates a branch-type input by ref anywhere in the project.
func (p *Project) BranchInput(inputRef string) *Input {
	for i := range p.Definition.Forms {
		for j := range p.Definition.Forms[i].Inputs {
			in := &p.Definition.Forms[i].Inputs[j]
			if in.Type == InputBranch && in.Ref == inputRef {
				return in
			}
		}
	}
	return nil
}

// InputByRef searches a form's inputs, descending one level into
// group/branch containers.
func (f *Form) InputByRef(inputRef string) *Input {
	for i := range f.Inputs {
		if f.Inputs[i].Ref == inputRef {
			return &f.Inputs[i]
		}
		for j := range f.Inputs[i].Inputs {
			if f.Inputs[i].Inputs[j].Ref == inputRef {
				return &f.Inputs[i].Inputs[j]
			}
		}
	}
	return nil
}
