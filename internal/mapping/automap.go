package mapping

import (
	"fmt"
	"strings"

	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

// AutoMapping generates the reserved 1:1 mapping from the project
// definition: every answer-producing input becomes a column, in definition
// order. Group children are hoisted into their form's layout; each branch
// input gets its own layout keyed by the branch ref.
func AutoMapping(project *models.Project) *models.ProjectMapping {
	mapping := &models.ProjectMapping{
		ProjectID: project.ID,
		MapIndex:  models.AutoMapIndex,
		Name:      "EC5 AUTO",
		IsDefault: true,
		Forms:     make(map[string]models.FormMapping),
	}

	for i := range project.Definition.Forms {
		form := &project.Definition.Forms[i]
		used := map[string]int{}
		columns := []models.MapColumn{}

		for j := range form.Inputs {
			in := &form.Inputs[j]
			switch in.Type {
			case models.InputGroup:
				for k := range in.Inputs {
					columns = appendColumn(columns, &in.Inputs[k], used)
				}
			case models.InputBranch:
				branchUsed := map[string]int{}
				branchColumns := []models.MapColumn{}
				for k := range in.Inputs {
					branchColumns = appendColumn(branchColumns, &in.Inputs[k], branchUsed)
				}
				mapping.Forms[in.Ref] = models.FormMapping{Columns: branchColumns}
			default:
				columns = appendColumn(columns, in, used)
			}
		}
		mapping.Forms[form.Ref] = models.FormMapping{Columns: columns}
	}
	return mapping
}

func appendColumn(columns []models.MapColumn, in *models.Input, used map[string]int) []models.MapColumn {
	if !in.ProducesAnswer() {
		return columns
	}
	label := columnLabel(in.Question)
	if n := used[label]; n > 0 {
		label = fmt.Sprintf("%s_%d", label, n+1)
	}
	used[columnLabel(in.Question)]++

	return append(columns, models.MapColumn{
		InputRef:    in.Ref,
		ColumnLabel: label,
		TargetIndex: len(columns),
	})
}

// columnLabel slugs a question into a CSV-safe header.
func columnLabel(question string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(question)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	label := strings.Trim(b.String(), "_")
	if label == "" {
		label = "question"
	}
	const maxLabel = 64
	if len(label) > maxLabel {
		label = label[:maxLabel]
	}
	return label
}
