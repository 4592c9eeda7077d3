package mapping

import (
	"strings"
	"testing"
	"time"

	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

func testProject(access string) *models.Project {
	return &models.Project{
		Ref:    "abc123",
		Slug:   "tree-survey",
		Name:   "Tree Survey",
		Access: access,
		Status: models.StatusActive,
		Definition: models.ProjectDefinition{
			Forms: []models.Form{
				{
					Ref:  "form_0",
					Name: "Tree",
					Slug: "tree",
					Inputs: []models.Input{
						{Ref: "in_name", Type: models.InputText, Question: "Tree name", IsTitle: true},
						{Ref: "in_species", Type: models.InputCheckbox, Question: "Species seen", PossibleAnswers: []models.PossibleAnswer{
							{Answer: "Oak", AnswerRef: "ref_oak"},
							{Answer: "Ash", AnswerRef: "ref_ash"},
						}},
						{Ref: "in_where", Type: models.InputLocation, Question: "Where is it"},
						{Ref: "in_photo", Type: models.InputPhoto, Question: "Photo"},
						{Ref: "in_height", Type: models.InputDecimal, Question: "Height"},
						{Ref: "in_info", Type: models.InputReadme, Question: "Info block"},
						{Ref: "in_checks", Type: models.InputBranch, Question: "Checks", Inputs: []models.Input{
							{Ref: "in_check_date", Type: models.InputDate, Question: "Check date"},
						}},
					},
				},
			},
		},
	}
}

func testRow(uuid string, lat, lon float64) Row {
	return Row{
		UUID:       uuid,
		Title:      "Old Oak",
		UserID:     "user-1",
		CreatedAt:  time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC),
		UploadedAt: time.Date(2023, 6, 1, 10, 5, 0, 0, time.UTC),
		Answers: map[string]models.Answer{
			"in_name":    {Answer: models.ScalarAnswer("Old Oak")},
			"in_species": {Answer: models.MultiAnswer("ref_oak", "ref_ash")},
			"in_where":   {Answer: models.LocationAnswer(lat, lon, 4)},
			"in_photo":   {Answer: models.ScalarAnswer("photo_1.jpg")},
			"in_height":  {Answer: models.ScalarAnswer("12.50")},
		},
		ChildCounts:  map[string]int64{},
		BranchCounts: map[string]int64{"in_checks": 2},
		Geo: map[string]models.GeoFeature{
			"in_where": models.NewPointFeature(models.Location{Latitude: lat, Longitude: lon, Accuracy: 4}, map[string]any{"uuid": uuid}),
		},
	}
}

func TestAutoMappingCoversAnswerProducingInputs(t *testing.T) {
	m := AutoMapping(testProject(models.AccessPublic))

	form, ok := m.Forms["form_0"]
	if !ok {
		t.Fatalf("auto mapping missing form layout")
	}
	// readme and branch are excluded; branch gets its own layout.
	if len(form.Columns) != 5 {
		t.Fatalf("expected 5 columns, got %d: %+v", len(form.Columns), form.Columns)
	}
	branch, ok := m.Forms["in_checks"]
	if !ok || len(branch.Columns) != 1 {
		t.Fatalf("branch input should have its own layout: %+v", m.Forms)
	}
}

func TestCSVRoundTripByHeader(t *testing.T) {
	engine, err := NewEngine(testProject(models.AccessPublic), "form_0", "", "http://localhost:3000", nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	header := engine.HeaderRowCSV()
	fields := engine.RenderCSV(testRow("uuid-1", 51.5072221234, -0.1275))
	if len(header) != len(fields) {
		t.Fatalf("header and row length differ: %d vs %d", len(header), len(fields))
	}

	byHeader := map[string]string{}
	for i := range header {
		byHeader[header[i]] = fields[i]
	}

	if byHeader["ec5_uuid"] != "uuid-1" {
		t.Fatalf("uuid column mismatch: %q", byHeader["ec5_uuid"])
	}
	if byHeader["tree_name"] != "Old Oak" {
		t.Fatalf("text column mismatch: %q", byHeader["tree_name"])
	}
	if byHeader["species_seen"] != "Oak, Ash" {
		t.Fatalf("choice refs should render as joined labels: %q", byHeader["species_seen"])
	}
	if byHeader["where_is_it"] != "51.507222, -0.1275, 4" {
		t.Fatalf("location column mismatch: %q", byHeader["where_is_it"])
	}
	if byHeader["height"] != "12.50" {
		t.Fatalf("decimal must render verbatim, got %q", byHeader["height"])
	}
	if byHeader["photo"] != "photo_1.jpg" {
		t.Fatalf("public project should render bare filename, got %q", byHeader["photo"])
	}
}

func TestMediaRendersURLForPrivateProjects(t *testing.T) {
	engine, err := NewEngine(testProject(models.AccessPrivate), "form_0", "", "https://five.epicollect.net", nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	out := engine.RenderJSON(testRow("uuid-1", 51.5, -0.12), false)
	photo, ok := out["photo"].(string)
	if !ok || !strings.HasPrefix(photo, "https://five.epicollect.net/api/media/tree-survey?type=photo&name=") {
		t.Fatalf("private project should render media URL, got %v", out["photo"])
	}
}

func TestRenderJSONMergesComputedFields(t *testing.T) {
	engine, err := NewEngine(testProject(models.AccessPublic), "form_0", "", "http://localhost:3000", nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	out := engine.RenderJSON(testRow("uuid-1", 51.5, -0.12), true)
	counts, ok := out["branch_counts"].(map[string]int64)
	if !ok || counts["in_checks"] != 2 {
		t.Fatalf("branch counts should be merged at render time, got %v", out["branch_counts"])
	}
	if out["user_id"] != "user-1" {
		t.Fatalf("user id should be merged at render time, got %v", out["user_id"])
	}

	species, ok := out["species_seen"].([]string)
	if !ok || len(species) != 2 || species[0] != "Oak" {
		t.Fatalf("choice answers should stay arrays in JSON, got %v", out["species_seen"])
	}

	bare := engine.RenderJSON(testRow("uuid-1", 51.5, -0.12), false)
	if _, exists := bare["branch_counts"]; exists {
		t.Fatalf("mapped render must not inject computed fields")
	}
}

func TestStoredMappingHonorsOrderAndHide(t *testing.T) {
	stored := &models.ProjectMapping{
		MapIndex: 1,
		Name:     "custom",
		Forms: map[string]models.FormMapping{
			"form_0": {Columns: []models.MapColumn{
				{InputRef: "in_height", ColumnLabel: "height_m", TargetIndex: 1},
				{InputRef: "in_name", ColumnLabel: "name", TargetIndex: 0},
				{InputRef: "in_photo", ColumnLabel: "photo", TargetIndex: 2, Hide: true},
			}},
		},
	}
	engine, err := NewEngine(testProject(models.AccessPublic), "form_0", "", "http://localhost:3000", stored)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	header := engine.HeaderRowCSV()
	want := []string{"ec5_uuid", "created_at", "uploaded_at", "title", "name", "height_m"}
	if len(header) != len(want) {
		t.Fatalf("unexpected header %v", header)
	}
	for i := range want {
		if header[i] != want[i] {
			t.Fatalf("header[%d] = %q, want %q", i, header[i], want[i])
		}
	}
}

func TestBranchEngineHeaderCarriesOwnerColumn(t *testing.T) {
	engine, err := NewEngine(testProject(models.AccessPublic), "form_0", "in_checks", "http://localhost:3000", nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	header := engine.HeaderRowCSV()
	if header[1] != "ec5_branch_owner_uuid" {
		t.Fatalf("branch header should carry owner uuid column: %v", header)
	}
}

func TestGeoJSONProjection(t *testing.T) {
	engine, err := NewEngine(testProject(models.AccessPublic), "form_0", "", "http://localhost:3000", nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	coords := [][2]float64{
		{51.5072221234, -0.1275},
		{48.8566, 2.3522},
		{40.7128, -74.006},
	}
	features := []models.GeoFeature{}
	for i, c := range coords {
		row := testRow("uuid-"+string(rune('a'+i)), c[0], c[1])
		features = append(features, engine.RenderGeoJSON(row)...)
	}

	if len(features) != 3 {
		t.Fatalf("expected 3 features, got %d", len(features))
	}
	if features[0].Geometry.Coordinates[1] != 51.507222 {
		t.Fatalf("latitude should round to 6 digits, got %v", features[0].Geometry.Coordinates)
	}
	for _, f := range features {
		if f.Type != "Feature" || f.Geometry.Type != "Point" {
			t.Fatalf("malformed feature %+v", f)
		}
	}
}
