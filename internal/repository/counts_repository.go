package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/epicollect5/epicollect5-server-sub006/database"
)

// countByField groups rows matching filter and counts them per value of
// the given field.
func countByField(ctx context.Context, coll string, filter bson.M, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$" + field,
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := database.DB.Collection(coll).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.Count
	}
	return counts, nil
}

// ChildCountsFor recomputes the per-form child counts of a parent entry.
func ChildCountsFor(ctx context.Context, projectID bson.ObjectID, parentUUID string) (map[string]int64, error) {
	return countByField(ctx, entriesColl,
		bson.M{"project_id": projectID, "parent_uuid": parentUUID}, "form_ref")
}

// BranchCountsFor recomputes the per-branch-input counts of an owner entry.
func BranchCountsFor(ctx context.Context, projectID bson.ObjectID, ownerUUID string) (map[string]int64, error) {
	return countByField(ctx, branchEntriesColl,
		bson.M{"project_id": projectID, "owner_uuid": ownerUUID}, "owner_input_ref")
}

// SetEntryCounts writes a recomputed denormalized count column back onto
// an entry row. field is "child_counts" or "branch_counts".
func SetEntryCounts(ctx context.Context, projectID bson.ObjectID, uuid, field string, counts map[string]int64) error {
	_, err := database.DB.Collection(entriesColl).UpdateOne(
		ctx,
		bson.M{"project_id": projectID, "uuid": uuid},
		bson.M{"$set": bson.M{field: counts}},
	)
	return err
}

// TotalEntries counts all hierarchy entries of a project, for the stats.
func TotalEntries(ctx context.Context, projectID bson.ObjectID) (int64, error) {
	return database.DB.Collection(entriesColl).CountDocuments(ctx, bson.M{"project_id": projectID})
}
