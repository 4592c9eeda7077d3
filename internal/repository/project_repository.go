package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/epicollect5/epicollect5-server-sub006/database"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

const (
	projectsColl = "projects"
	mappingsColl = "mappings"
)

func GetProjectBySlug(ctx context.Context, slug string) (*models.Project, error) {
	var project models.Project
	err := database.DB.Collection(projectsColl).FindOne(ctx, bson.M{"slug": slug}).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := project.ValidateDefinition(); err != nil {
		return nil, fmt.Errorf("project %s: %w", slug, err)
	}
	return &project, nil
}

// TouchProjectStats refreshes the aggregate entry counters after an upload
// or a delete.
func TouchProjectStats(ctx context.Context, projectID bson.ObjectID) error {
	total, err := TotalEntries(ctx, projectID)
	if err != nil {
		return err
	}
	formCounts, err := countByField(ctx, entriesColl, bson.M{"project_id": projectID}, "form_ref")
	if err != nil {
		return err
	}
	branchCounts, err := countByField(ctx, branchEntriesColl, bson.M{"project_id": projectID}, "owner_input_ref")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = database.DB.Collection(projectsColl).UpdateOne(
		ctx,
		bson.M{"_id": projectID},
		bson.M{"$set": bson.M{
			"stats.total_entries":    total,
			"stats.form_counts":      formCounts,
			"stats.branch_counts":    branchCounts,
			"stats.last_entry_added": now,
		}},
	)
	return err
}

// GetMapping fetches a project's mapping by index; nil when the index is
// unknown.
func GetMapping(ctx context.Context, projectID bson.ObjectID, mapIndex int) (*models.ProjectMapping, error) {
	var mapping models.ProjectMapping
	err := database.DB.Collection(mappingsColl).
		FindOne(ctx, bson.M{"project_id": projectID, "map_index": mapIndex}).
		Decode(&mapping)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

func GetDefaultMapping(ctx context.Context, projectID bson.ObjectID) (*models.ProjectMapping, error) {
	var mapping models.ProjectMapping
	err := database.DB.Collection(mappingsColl).
		FindOne(ctx, bson.M{"project_id": projectID, "is_default": true}).
		Decode(&mapping)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
