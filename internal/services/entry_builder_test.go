package services

import (
	"strings"
	"testing"

	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

func testProject() *models.Project {
	return &models.Project{
		Ref:     "abc123",
		Slug:    "bird-survey",
		Name:    "Bird Survey",
		Access:  models.AccessPublic,
		Status:  models.StatusActive,
		Version: "1",
		Definition: models.ProjectDefinition{
			Forms: []models.Form{
				{
					Ref:  "form_0",
					Name: "Sighting",
					Slug: "sighting",
					Inputs: []models.Input{
						{Ref: "in_name", Type: models.InputText, Question: "Observer name", IsTitle: true},
						{Ref: "in_species", Type: models.InputRadio, Question: "Species", PossibleAnswers: []models.PossibleAnswer{
							{Answer: "Robin", AnswerRef: "ref_robin"},
							{Answer: "Wren", AnswerRef: "ref_wren"},
						}},
						{Ref: "in_where", Type: models.InputLocation, Question: "Where"},
						{Ref: "in_group", Type: models.InputGroup, Question: "Details", Inputs: []models.Input{
							{Ref: "in_count", Type: models.InputInteger, Question: "How many", Uniqueness: models.ScopeHierarchy},
						}},
						{Ref: "in_notes", Type: models.InputReadme, Question: "Notes"},
						{Ref: "in_visits", Type: models.InputBranch, Question: "Visits", Inputs: []models.Input{
							{Ref: "in_visit_date", Type: models.InputDate, Question: "Visit date", DateFormat: "dd/MM/YYYY"},
						}},
					},
				},
			},
		},
	}
}

func entryDoc(answers map[string]models.Answer) *models.Document {
	return &models.Document{
		Type:       "entry",
		ID:         "uuid-entry-1",
		Attributes: models.DocAttributes{Form: models.DocForm{Ref: "form_0", Type: "hierarchy"}},
		Entry: &models.DocumentEntry{
			EntryUUID: "uuid-entry-1",
			CreatedAt: "2023-06-01T10:00:00Z",
			Answers:   answers,
		},
	}
}

func TestBuilderTitleJoinsFlaggedAnswers(t *testing.T) {
	doc := entryDoc(map[string]models.Answer{
		"in_name": {Answer: models.ScalarAnswer("Ada")},
	})
	b, err := NewEntryBuilder(testProject(), doc, "user-1")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if b.Title() != "Ada" {
		t.Fatalf("unexpected title %q", b.Title())
	}
}

func TestBuilderTitleFallsBackToUUID(t *testing.T) {
	doc := entryDoc(map[string]models.Answer{
		"in_name": {Answer: models.ScalarAnswer("")},
	})
	b, err := NewEntryBuilder(testProject(), doc, "user-1")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
	if b.Title() != b.UUID() {
		t.Fatalf("empty title should fall back to uuid, got %q", b.Title())
	}
}

func TestBuilderSynthesizesGeoFeatureWithAccumulatedChoices(t *testing.T) {
	doc := entryDoc(map[string]models.Answer{
		"in_species": {Answer: models.MultiAnswer("ref_robin")},
		"in_where":   {Answer: models.LocationAnswer(51.5072221234, -0.1275, 4)},
	})
	b, err := NewEntryBuilder(testProject(), doc, "user-1")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	entry, err := b.ToEntry(b.UUID())
	if err != nil {
		t.Fatalf("to entry: %v", err)
	}
	feature, ok := entry.Geo["in_where"]
	if !ok {
		t.Fatalf("location input should produce a geo feature")
	}
	if feature.Geometry.Coordinates[0] != -0.1275 || feature.Geometry.Coordinates[1] != 51.507222 {
		t.Fatalf("coordinates should be [lon, lat] rounded to 6 digits, got %v", feature.Geometry.Coordinates)
	}
	refs, ok := feature.Properties["possible_answers"].([]string)
	if !ok || len(refs) != 1 || refs[0] != "ref_robin" {
		t.Fatalf("feature should carry the accumulated choice refs, got %v", feature.Properties["possible_answers"])
	}
}

func TestBuilderStampsFinalTitleOnEarlyFeatures(t *testing.T) {
	// Location input ahead of the is_title input: the feature must still
	// carry the derived title, not the uuid fallback in force mid-walk.
	project := testProject()
	project.Definition.Forms[0].Inputs = []models.Input{
		{Ref: "in_where", Type: models.InputLocation, Question: "Where"},
		{Ref: "in_name", Type: models.InputText, Question: "Observer name", IsTitle: true},
	}
	doc := entryDoc(map[string]models.Answer{
		"in_where": {Answer: models.LocationAnswer(51.5, -0.12, 4)},
		"in_name":  {Answer: models.ScalarAnswer("Ada")},
	})
	b, err := NewEntryBuilder(project, doc, "user-1")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	entry, err := b.ToEntry(b.UUID())
	if err != nil {
		t.Fatalf("to entry: %v", err)
	}
	feature := entry.Geo["in_where"]
	if feature.Properties["title"] != "Ada" {
		t.Fatalf("feature title %v diverges from entry title %q", feature.Properties["title"], entry.Title)
	}
}

func TestBuilderWalksGroupChildrenAndCollectsUniqueChecks(t *testing.T) {
	doc := entryDoc(map[string]models.Answer{
		"in_count": {Answer: models.ScalarAnswer("12")},
	})
	b, err := NewEntryBuilder(testProject(), doc, "user-1")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	checks := b.Checks()
	if len(checks) != 1 || checks[0].Input.Ref != "in_count" {
		t.Fatalf("group child with uniqueness should be queued for checking, got %+v", checks)
	}

	entry, err := b.ToEntry(b.UUID())
	if err != nil {
		t.Fatalf("to entry: %v", err)
	}
	if entry.AnswersNorm["in_count"] != "12" {
		t.Fatalf("normalized answer missing from row: %+v", entry.AnswersNorm)
	}
}

func TestBuilderRejectsUnknownForm(t *testing.T) {
	doc := entryDoc(nil)
	doc.Attributes.Form.Ref = "form_missing"
	if _, err := NewEntryBuilder(testProject(), doc, "user-1"); err == nil {
		t.Fatalf("unknown form ref should be rejected")
	}
}

func TestBranchBuilderRequiresResolvedOwner(t *testing.T) {
	doc := &models.Document{
		Type:       "branch_entry",
		ID:         "uuid-branch-1",
		Attributes: models.DocAttributes{Form: models.DocForm{Ref: "form_0", Type: "hierarchy"}},
		Relationships: models.DocRelations{
			Branch: models.DocRelation{Data: map[string]string{
				"owner_entry_uuid": "uuid-entry-1",
				"owner_input_ref":  "in_visits",
			}},
		},
		BranchEntry: &models.DocumentEntry{
			EntryUUID: "uuid-branch-1",
			Answers: map[string]models.Answer{
				"in_visit_date": {Answer: models.ScalarAnswer("25/12/2023")},
			},
		},
	}

	b, err := NewEntryBuilder(testProject(), doc, "user-1")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if !b.IsBranch() {
		t.Fatalf("document type branch_entry should build a branch")
	}
	if err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := b.ToBranchEntry(); err == nil {
		t.Fatalf("branch without resolved owner must not materialize")
	}

	owner := &models.Entry{UUID: "uuid-entry-1", TopUUID: "uuid-top"}
	b.SetOwnerEntry(owner)
	entry, err := b.ToBranchEntry()
	if err != nil {
		t.Fatalf("to branch entry: %v", err)
	}
	if entry.OwnerUUID != "uuid-entry-1" || entry.TopUUID != "uuid-top" {
		t.Fatalf("owner linkage incomplete: %+v", entry)
	}
	if entry.OwnerInputRef != "in_visits" {
		t.Fatalf("unexpected owner input ref %q", entry.OwnerInputRef)
	}
}

func TestBuilderGeneratesUUIDWhenPayloadOmitsIt(t *testing.T) {
	doc := entryDoc(nil)
	doc.Entry.EntryUUID = ""
	b, err := NewEntryBuilder(testProject(), doc, "user-1")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if b.UUID() == "" || strings.Contains(b.UUID(), " ") {
		t.Fatalf("expected generated uuid, got %q", b.UUID())
	}
}
