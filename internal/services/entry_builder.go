package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/epicollect5/epicollect5-server-sub006/internal/answers"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

// choiceAccumulator collects the possible-answer refs selected since the
// last location input, so each synthesized feature only carries the
// choices belonging to its stretch of the form. An explicit object, passed
// along the walk and flushed by it.
type choiceAccumulator struct {
	refs []string
}

func (a *choiceAccumulator) add(refs ...string) {
	a.refs = append(a.refs, refs...)
}

func (a *choiceAccumulator) flush() []string {
	out := a.refs
	a.refs = nil
	return out
}

// uniqueCheck is one deferred uniqueness validation, collected during the
// walk and executed by the create service inside its transaction.
type uniqueCheck struct {
	Input *models.Input
	Value models.AnswerValue
}

// EntryBuilder assembles one Entry or BranchEntry from a validated answer
// document. Upstream validation (type/range/regex) is assumed done; the
// builder owns normalization, title derivation and geo feature synthesis.
type EntryBuilder struct {
	project *models.Project
	form    *models.Form
	doc     *models.Document
	payload *models.DocumentEntry

	uuid      string
	userID    string
	createdAt time.Time
	isBranch  bool

	// Set for branch entries once the owner row is resolved.
	ownerEntry *models.Entry

	titleParts   []string
	acc          choiceAccumulator
	geo          map[string]models.GeoFeature
	answersNorm  map[string]string
	uniqueChecks []uniqueCheck
}

// errNoPayload marks a document without an entry/branch_entry body, so the
// service can report it as malformed rather than as an unknown form.
var errNoPayload = errors.New("document carries no entry payload")

// NewEntryBuilder validates the document's form reference against the
// project definition and prepares the walk.
func NewEntryBuilder(project *models.Project, doc *models.Document, userID string) (*EntryBuilder, error) {
	payload := doc.Payload()
	if payload == nil {
		return nil, errNoPayload
	}

	form := project.FormByRef(doc.Attributes.Form.Ref)
	if form == nil {
		return nil, fmt.Errorf("unknown form ref %q", doc.Attributes.Form.Ref)
	}

	entryUUID := payload.EntryUUID
	if entryUUID == "" {
		entryUUID = uuid.NewString()
	}

	createdAt := time.Now().UTC()
	if payload.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.CreatedAt); err == nil {
			createdAt = t.UTC()
		}
	}

	return &EntryBuilder{
		project:     project,
		form:        form,
		doc:         doc,
		payload:     payload,
		uuid:        entryUUID,
		userID:      userID,
		createdAt:   createdAt,
		isBranch:    doc.Type == "branch_entry",
		geo:         make(map[string]models.GeoFeature),
		answersNorm: make(map[string]string),
	}, nil
}

func (b *EntryBuilder) UUID() string          { return b.uuid }
func (b *EntryBuilder) IsBranch() bool        { return b.isBranch }
func (b *EntryBuilder) CreatedAt() time.Time  { return b.createdAt }
func (b *EntryBuilder) Checks() []uniqueCheck { return b.uniqueChecks }

// OwnerUUID returns the owning entry uuid a branch document points at.
func (b *EntryBuilder) OwnerUUID() string {
	return b.doc.Relationships.Branch.Data["owner_entry_uuid"]
}

// OwnerInputRef returns the branch input a branch document answers.
func (b *EntryBuilder) OwnerInputRef() string {
	return b.doc.Relationships.Branch.Data["owner_input_ref"]
}

func (b *EntryBuilder) ParentUUID() string {
	return b.doc.Relationships.Parent.Data["parent_entry_uuid"]
}

func (b *EntryBuilder) ParentFormRef() string {
	return b.doc.Relationships.Parent.Data["parent_form_ref"]
}

// SetOwnerEntry records the resolved owner row. Calling the branch
// persistence path without it is a programming error, guarded in the
// service.
func (b *EntryBuilder) SetOwnerEntry(owner *models.Entry) {
	b.ownerEntry = owner
}

// Build walks the schema and consumes the payload's answers. Containers
// are walked one level down; their children never recurse further.
func (b *EntryBuilder) Build() error {
	inputs := b.form.Inputs
	if b.isBranch {
		branchInput := b.project.BranchInput(b.OwnerInputRef())
		if branchInput == nil {
			return fmt.Errorf("unknown branch input ref %q", b.OwnerInputRef())
		}
		inputs = branchInput.Inputs
	}

	for i := range inputs {
		in := &inputs[i]
		switch {
		case in.Type == models.InputGroup:
			for j := range in.Inputs {
				if err := b.addAnswer(&in.Inputs[j]); err != nil {
					return err
				}
			}
		case in.Type == models.InputBranch, in.Type == models.InputReadme:
			// Branch answers arrive as separate branch-entry uploads;
			// readme blocks never hold a value.
		default:
			if err := b.addAnswer(in); err != nil {
				return err
			}
		}
	}

	// The title is only final once every is_title input has been walked;
	// features synthesized earlier in the walk get it stamped here.
	for ref, feature := range b.geo {
		feature.Properties["title"] = b.Title()
		b.geo[ref] = feature
	}
	return nil
}

// addAnswer folds one leaf input's answer into the in-progress entry.
func (b *EntryBuilder) addAnswer(input *models.Input) error {
	answer, ok := b.payload.Answers[input.Ref]
	if !ok {
		return nil
	}
	value := answer.Answer

	if input.IsMultipleChoice() && value.Kind == models.AnswerMulti {
		b.acc.add(value.Refs...)
	}

	if input.Type == models.InputLocation && value.Kind == models.AnswerLocation {
		b.geo[input.Ref] = b.buildFeature(value.Location)
	}

	if input.IsTitle && !value.IsEmpty() {
		b.titleParts = append(b.titleParts, titleText(value))
	}

	switch input.Uniqueness {
	case models.ScopeHierarchy, models.ScopeProject:
		if !value.IsEmpty() {
			normalized, err := answers.Normalize(input, value)
			if err != nil {
				return fmt.Errorf("input %s: %w", input.Ref, err)
			}
			b.answersNorm[input.Ref] = normalized
			b.uniqueChecks = append(b.uniqueChecks, uniqueCheck{Input: input, Value: value})
		}
	}
	return nil
}

// buildFeature synthesizes the geo feature for one location answer and
// flushes the choice accumulator into its properties. The title property
// is stamped at the end of the walk, once it is final.
func (b *EntryBuilder) buildFeature(loc models.Location) models.GeoFeature {
	props := map[string]any{
		"uuid":       b.uuid,
		"created_at": b.createdAt.Format(time.RFC3339),
		"accuracy":   loc.Accuracy,
	}
	if refs := b.acc.flush(); len(refs) > 0 {
		props["possible_answers"] = refs
	}
	return models.NewPointFeature(loc, props)
}

// Title space-joins the is_title answers in input order and falls back to
// the entry uuid when they are all empty.
func (b *EntryBuilder) Title() string {
	title := strings.TrimSpace(strings.Join(b.titleParts, " "))
	if title == "" {
		return b.uuid
	}
	return title
}

func titleText(v models.AnswerValue) string {
	switch v.Kind {
	case models.AnswerMulti:
		return strings.Join(v.Refs, " ")
	case models.AnswerLocation:
		return fmt.Sprintf("%.6f, %.6f", v.Location.Latitude, v.Location.Longitude)
	default:
		return v.Scalar
	}
}

// ToEntry materializes a hierarchy entry row. topUUID is the resolved
// top-level ancestor (the entry's own uuid for root-form entries).
func (b *EntryBuilder) ToEntry(topUUID string) (models.Entry, error) {
	raw, err := b.serializeDoc()
	if err != nil {
		return models.Entry{}, err
	}
	return models.Entry{
		UUID:          b.uuid,
		ProjectID:     b.project.ID,
		FormRef:       b.form.Ref,
		ParentUUID:    b.ParentUUID(),
		ParentFormRef: b.ParentFormRef(),
		TopUUID:       topUUID,
		EntryDoc:      raw,
		AnswersNorm:   b.answersNorm,
		Title:         b.Title(),
		UserID:        b.userID,
		DeviceID:      b.payload.DeviceID,
		Platform:      b.payload.Platform,
		UploadedAt:    time.Now().UTC(),
		CreatedAt:     b.createdAt,
		Geo:           b.geo,
	}, nil
}

// ToBranchEntry materializes a branch-entry row. The owner must have been
// resolved first; a branch without its owner is unpersistable.
func (b *EntryBuilder) ToBranchEntry() (models.BranchEntry, error) {
	if b.ownerEntry == nil {
		return models.BranchEntry{}, fmt.Errorf("owner entry not resolved for branch %s", b.uuid)
	}
	raw, err := b.serializeDoc()
	if err != nil {
		return models.BranchEntry{}, err
	}
	return models.BranchEntry{
		UUID:          b.uuid,
		ProjectID:     b.project.ID,
		FormRef:       b.form.Ref,
		OwnerUUID:     b.ownerEntry.UUID,
		OwnerInputRef: b.OwnerInputRef(),
		OwnerEntryID:  b.ownerEntry.ID,
		TopUUID:       b.ownerEntry.TopUUID,
		EntryDoc:      raw,
		AnswersNorm:   b.answersNorm,
		Title:         b.Title(),
		UserID:        b.userID,
		DeviceID:      b.payload.DeviceID,
		Platform:      b.payload.Platform,
		UploadedAt:    time.Now().UTC(),
		CreatedAt:     b.createdAt,
		Geo:           b.geo,
	}, nil
}

// serializeDoc stores the document with the derived title and uuid folded
// back in, so the stored JSON is self-describing.
func (b *EntryBuilder) serializeDoc() (string, error) {
	b.payload.EntryUUID = b.uuid
	b.payload.Title = b.Title()
	b.payload.ProjectVersion = b.project.Version
	if b.payload.CreatedAt == "" {
		b.payload.CreatedAt = b.createdAt.Format(time.RFC3339)
	}
	b.doc.ID = b.uuid
	return b.doc.Serialize()
}
