package bootstrap

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureEntryIndexes creates the lookup and uniqueness indexes the entry
// queries rely on. Entry uuids are globally unique; parent and owner
// lookups back the hierarchy and branch queries.
func EnsureEntryIndexes(db *mongo.Database) error {
	_, err := db.Collection("entries").Indexes().CreateMany(
		context.Background(),
		[]mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "uuid", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_entry_uuid"),
			},
			{
				Keys: bson.D{
					{Key: "project_id", Value: 1},
					{Key: "form_ref", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("entries_by_form"),
			},
			{
				Keys:    bson.D{{Key: "parent_uuid", Value: 1}},
				Options: options.Index().SetName("entries_by_parent"),
			},
		},
	)
	if err != nil {
		return err
	}

	_, err = db.Collection("branch_entries").Indexes().CreateMany(
		context.Background(),
		[]mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "uuid", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_branch_entry_uuid"),
			},
			{
				Keys: bson.D{
					{Key: "project_id", Value: 1},
					{Key: "owner_input_ref", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("branch_entries_by_ref"),
			},
			{
				Keys:    bson.D{{Key: "owner_uuid", Value: 1}},
				Options: options.Index().SetName("branch_entries_by_owner"),
			},
		},
	)
	return err
}
