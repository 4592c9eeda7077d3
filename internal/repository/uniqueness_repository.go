package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/epicollect5/epicollect5-server-sub006/database"
)

// ExistsFunc is the lookup shape the uniqueness checker runs against, so
// the scope construction stays testable without a database.
type ExistsFunc func(ctx context.Context, scope bson.M, inputRef, normalized, excludeUUID string) (bool, error)

// AnswerExists reports whether any entry or branch entry matching the scope
// filter already holds the normalized candidate value for the input ref.
// The submitting entry's own uuid is excluded so re-uploads of the same
// record never collide with themselves.
func AnswerExists(ctx context.Context, scope bson.M, inputRef, normalized, excludeUUID string) (bool, error) {
	filter := bson.M{"answers_norm." + inputRef: normalized}
	for k, v := range scope {
		filter[k] = v
	}
	if excludeUUID != "" {
		filter["uuid"] = bson.M{"$ne": excludeUUID}
	}

	for _, coll := range []string{entriesColl, branchEntriesColl} {
		n, err := database.DB.Collection(coll).CountDocuments(ctx, filter)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
