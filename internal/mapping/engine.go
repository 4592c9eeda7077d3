// Package mapping renders stored answer documents into caller-defined
// column layouts for CSV and JSON export, including the geojson projection
// of location answers.
package mapping

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

// DefaultDelimiter joins multi-choice labels in CSV fields.
const DefaultDelimiter = ", "

// Engine renders rows of one form (or one branch input) through a resolved
// column layout.
type Engine struct {
	project   *models.Project
	form      *models.Form
	branchRef string
	columns   []models.MapColumn
	inputs    map[string]*models.Input

	// APIURL switches media rendering to fully-resolved URLs for private
	// projects.
	apiURL    string
	delimiter string
}

// NewEngine resolves the active layout for the form (or, when branchRef is
// set, the branch input) out of the given mapping. A nil mapping selects
// the generated auto mapping.
func NewEngine(project *models.Project, formRef, branchRef, apiURL string, m *models.ProjectMapping) (*Engine, error) {
	form := project.FormByRef(formRef)
	if form == nil {
		return nil, fmt.Errorf("unknown form ref %q", formRef)
	}

	if m == nil {
		m = AutoMapping(project)
	}

	layoutKey := formRef
	if branchRef != "" {
		layoutKey = branchRef
	}
	layout, ok := m.Forms[layoutKey]
	if !ok {
		// A stored mapping may predate a newer form or branch; fall back
		// to the auto layout for it.
		layout, ok = AutoMapping(project).Forms[layoutKey]
		if !ok {
			return nil, fmt.Errorf("no mapping layout for %q", layoutKey)
		}
	}

	columns := make([]models.MapColumn, 0, len(layout.Columns))
	for _, col := range layout.Columns {
		if !col.Hide {
			columns = append(columns, col)
		}
	}
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].TargetIndex < columns[j].TargetIndex
	})

	inputs := make(map[string]*models.Input)
	if branchRef != "" {
		branchInput := project.BranchInput(branchRef)
		if branchInput == nil {
			return nil, fmt.Errorf("unknown branch input ref %q", branchRef)
		}
		for i := range branchInput.Inputs {
			inputs[branchInput.Inputs[i].Ref] = &branchInput.Inputs[i]
		}
	} else {
		for i := range form.Inputs {
			in := &form.Inputs[i]
			inputs[in.Ref] = in
			for j := range in.Inputs {
				inputs[in.Inputs[j].Ref] = &in.Inputs[j]
			}
		}
	}

	return &Engine{
		project:   project,
		form:      form,
		branchRef: branchRef,
		columns:   columns,
		inputs:    inputs,
		apiURL:    apiURL,
		delimiter: DefaultDelimiter,
	}, nil
}

func (e *Engine) isBranch() bool { return e.branchRef != "" }

func (e *Engine) isChildForm() bool {
	return !e.isBranch() && e.form.ParentRef != ""
}

// HeaderRowCSV returns the ordered header labels matching RenderCSV.
func (e *Engine) HeaderRowCSV() []string {
	header := []string{"ec5_uuid"}
	if e.isChildForm() {
		header = append(header, "ec5_parent_uuid")
	}
	if e.isBranch() {
		header = append(header, "ec5_branch_owner_uuid")
	}
	header = append(header, "created_at", "uploaded_at", "title")
	for _, col := range e.columns {
		header = append(header, col.ColumnLabel)
	}
	return header
}

// RenderCSV produces one ordered field list for a row.
func (e *Engine) RenderCSV(row Row) []string {
	fields := []string{row.UUID}
	if e.isChildForm() {
		fields = append(fields, row.ParentUUID)
	}
	if e.isBranch() {
		fields = append(fields, row.OwnerUUID)
	}
	fields = append(fields,
		row.CreatedAt.UTC().Format(time.RFC3339),
		row.UploadedAt.UTC().Format(time.RFC3339),
		row.Title,
	)
	for _, col := range e.columns {
		fields = append(fields, e.renderFieldCSV(col.InputRef, row))
	}
	return fields
}

// RenderJSON reshapes a row into the mapped document. withComputed merges
// in the aggregate count objects and the rendering user's id — render-time
// data, never written back to the store.
func (e *Engine) RenderJSON(row Row, withComputed bool) map[string]any {
	out := map[string]any{
		"ec5_uuid":    row.UUID,
		"created_at":  row.CreatedAt.UTC().Format(time.RFC3339),
		"uploaded_at": row.UploadedAt.UTC().Format(time.RFC3339),
		"title":       row.Title,
	}
	if e.isChildForm() {
		out["ec5_parent_uuid"] = row.ParentUUID
	}
	if e.isBranch() {
		out["ec5_branch_owner_uuid"] = row.OwnerUUID
	}
	for _, col := range e.columns {
		out[col.ColumnLabel] = e.renderFieldJSON(col.InputRef, row)
	}
	if withComputed {
		if !e.isBranch() {
			out["branch_counts"] = countsOrEmpty(row.BranchCounts)
			out["child_counts"] = countsOrEmpty(row.ChildCounts)
		}
		out["user_id"] = row.UserID
	}
	return out
}

// RenderGeoJSON projects a row's cached location features.
func (e *Engine) RenderGeoJSON(row Row) []models.GeoFeature {
	refs := make([]string, 0, len(row.Geo))
	for ref := range row.Geo {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	features := make([]models.GeoFeature, 0, len(refs))
	for _, ref := range refs {
		features = append(features, row.Geo[ref])
	}
	return features
}

func (e *Engine) renderFieldCSV(inputRef string, row Row) string {
	input, ok := e.inputs[inputRef]
	if !ok {
		return ""
	}
	answer, ok := row.Answers[inputRef]
	if !ok || answer.WasJumped {
		return ""
	}
	value := answer.Answer

	switch {
	case input.IsMultipleChoice():
		labels := e.choiceLabels(input, value)
		out := ""
		for i, l := range labels {
			if i > 0 {
				out += e.delimiter
			}
			out += l
		}
		return out
	case input.Type == models.InputLocation:
		if value.Kind != models.AnswerLocation {
			return ""
		}
		loc := value.Location
		return fmt.Sprintf("%s, %s, %s",
			formatCoord(loc.Latitude), formatCoord(loc.Longitude),
			strconv.FormatFloat(loc.Accuracy, 'f', -1, 64))
	case input.IsMedia():
		return e.mediaValue(input, value)
	default:
		return value.Scalar
	}
}

func (e *Engine) renderFieldJSON(inputRef string, row Row) any {
	input, ok := e.inputs[inputRef]
	if !ok {
		return nil
	}
	answer, ok := row.Answers[inputRef]
	if !ok || answer.WasJumped {
		return emptyJSONValue(input)
	}
	value := answer.Answer

	switch {
	case input.IsMultipleChoice():
		return e.choiceLabels(input, value)
	case input.Type == models.InputLocation:
		if value.Kind != models.AnswerLocation {
			return nil
		}
		loc := value.Location
		return map[string]any{
			"latitude":  models.RoundCoord(loc.Latitude),
			"longitude": models.RoundCoord(loc.Longitude),
			"accuracy":  loc.Accuracy,
		}
	case input.IsMedia():
		return e.mediaValue(input, value)
	default:
		return value.Scalar
	}
}

// choiceLabels substitutes human-readable answer text for stored refs.
// A ref missing from the possible answers renders as itself, so stale
// stored data stays visible rather than vanishing.
func (e *Engine) choiceLabels(input *models.Input, value models.AnswerValue) []string {
	refs := value.Refs
	if value.Kind == models.AnswerScalar && value.Scalar != "" {
		refs = []string{value.Scalar}
	}
	labels := make([]string, 0, len(refs))
	for _, ref := range refs {
		if label, ok := input.AnswerLabel(ref); ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, ref)
		}
	}
	return labels
}

// mediaValue renders the bare filename for public projects and a resolved
// media URL for private ones, where files sit behind access control.
func (e *Engine) mediaValue(input *models.Input, value models.AnswerValue) string {
	name := value.Scalar
	if name == "" {
		return ""
	}
	if !e.project.IsPrivate() {
		return name
	}
	return fmt.Sprintf("%s/api/media/%s?type=%s&name=%s",
		e.apiURL, e.project.Slug, input.Type, url.QueryEscape(name))
}

func emptyJSONValue(input *models.Input) any {
	if input.IsMultipleChoice() {
		return []string{}
	}
	return ""
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(models.RoundCoord(v), 'f', -1, 64)
}

func countsOrEmpty(counts map[string]int64) map[string]int64 {
	if counts == nil {
		return map[string]int64{}
	}
	return counts
}
