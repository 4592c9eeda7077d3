package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/epicollect5/epicollect5-server-sub006/internal/answers"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
	"github.com/epicollect5/epicollect5-server-sub006/internal/repository"
)

// Violation reports a uniqueness collision bound to the offending input.
type Violation struct {
	InputRef string
}

// CheckUnique applies the input's declared uniqueness scope to a candidate
// answer. topUUID is the entry's resolved top-level ancestor (its own uuid
// for root entries); excludeUUID keeps a re-upload of the same record from
// colliding with itself. exists is the store lookup, normally
// repository.AnswerExists.
//
// Scope "entry" is deliberately a no-op at validation time, same as
// "none": it is trivially satisfied within a single submission.
func CheckUnique(
	ctx context.Context,
	project *models.Project,
	input *models.Input,
	value models.AnswerValue,
	topUUID string,
	excludeUUID string,
	exists repository.ExistsFunc,
) (*Violation, error) {

	switch input.Uniqueness {
	case models.ScopeHierarchy, models.ScopeProject:
	default:
		return nil, nil
	}
	if value.IsEmpty() {
		return nil, nil
	}

	normalized, err := answers.Normalize(input, value)
	if err != nil {
		return nil, fmt.Errorf("normalize answer for %s: %w", input.Ref, err)
	}

	scope := bson.M{"project_id": project.ID}
	if input.Uniqueness == models.ScopeHierarchy {
		scope["top_uuid"] = topUUID
	}

	found, err := exists(ctx, scope, input.Ref, normalized, excludeUUID)
	if err != nil {
		return nil, fmt.Errorf("uniqueness lookup for %s: %w", input.Ref, err)
	}
	if found {
		return &Violation{InputRef: input.Ref}, nil
	}
	return nil, nil
}
