package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/epicollect5/epicollect5-server-sub006/database"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

const (
	entriesColl       = "entries"
	branchEntriesColl = "branch_entries"
)

// QuerySelector tags which of the mutually-exclusive lookup modes a query
// resolves to. Exactly one applies; uuid wins over parent/owner, which win
// over the plain form/branch listing.
type QuerySelector int

const (
	SelectByForm QuerySelector = iota
	SelectByUUID
	SelectByParent
	SelectByOwner
	SelectByBranchRef
)

// ResolveSelector applies the dispatch order once, at the boundary.
func ResolveSelector(q models.EntryQuery) QuerySelector {
	switch {
	case q.UUID != "":
		return SelectByUUID
	case q.ParentUUID != "":
		return SelectByParent
	case q.BranchOwnerUUID != "":
		return SelectByOwner
	case q.BranchRef != "":
		return SelectByBranchRef
	default:
		return SelectByForm
	}
}

// entryFilter builds the Mongo filter for hierarchy entries.
func entryFilter(q models.EntryQuery) bson.M {
	filter := bson.M{"project_id": q.ProjectID}

	switch ResolveSelector(q) {
	case SelectByUUID:
		filter["uuid"] = q.UUID
		filter["form_ref"] = q.FormRef
	case SelectByParent:
		filter["parent_uuid"] = q.ParentUUID
		filter["form_ref"] = q.FormRef
	default:
		filter["form_ref"] = q.FormRef
	}

	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	return filter
}

// branchEntryFilter builds the Mongo filter for branch entries.
func branchEntryFilter(q models.EntryQuery) bson.M {
	filter := bson.M{"project_id": q.ProjectID}

	switch ResolveSelector(q) {
	case SelectByUUID:
		filter["uuid"] = q.UUID
	case SelectByOwner:
		filter["owner_uuid"] = q.BranchOwnerUUID
		filter["owner_input_ref"] = q.BranchRef
	default:
		filter["owner_input_ref"] = q.BranchRef
	}

	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	return filter
}

// sortSpec orders by the requested column, newest first by default, with
// uuid as tiebreak so pagination stays stable.
func sortSpec(q models.EntryQuery) bson.D {
	column := q.SortBy
	switch column {
	case models.SortByCreatedAt, models.SortByUploadedAt, models.SortByTitle:
	default:
		column = models.SortByCreatedAt
	}
	order := -1
	if q.SortOrder == "asc" {
		order = 1
	}
	return bson.D{{Key: column, Value: order}, {Key: "uuid", Value: order}}
}

func findOptions(q models.EntryQuery) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(sortSpec(q))
	if q.PerPage > 0 {
		opts = opts.SetSkip(q.Offset()).SetLimit(q.PerPage)
	}
	return opts
}

func FindEntries(ctx context.Context, q models.EntryQuery) ([]models.Entry, error) {
	cursor, err := database.DB.Collection(entriesColl).Find(ctx, entryFilter(q), findOptions(q))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func FindBranchEntries(ctx context.Context, q models.EntryQuery) ([]models.BranchEntry, error) {
	cursor, err := database.DB.Collection(branchEntriesColl).Find(ctx, branchEntryFilter(q), findOptions(q))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.BranchEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func CountEntries(ctx context.Context, q models.EntryQuery) (int64, error) {
	return database.DB.Collection(entriesColl).CountDocuments(ctx, entryFilter(q))
}

func CountBranchEntries(ctx context.Context, q models.EntryQuery) (int64, error) {
	return database.DB.Collection(branchEntriesColl).CountDocuments(ctx, branchEntryFilter(q))
}

// EntryBounds returns the min/max created_at of the whole filtered set,
// computed before pagination so the envelope reports true oldest/newest.
func EntryBounds(ctx context.Context, q models.EntryQuery) (time.Time, time.Time, error) {
	return createdBounds(ctx, entriesColl, entryFilter(q))
}

func BranchEntryBounds(ctx context.Context, q models.EntryQuery) (time.Time, time.Time, error) {
	return createdBounds(ctx, branchEntriesColl, branchEntryFilter(q))
}

// boundsPipeline aggregates min/max created_at over the exact same filter
// the paginated find uses, with no skip/limit stage: the bounds describe
// the whole filtered set, never the requested page.
func boundsPipeline(filter bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"oldest": bson.M{"$min": "$created_at"},
			"newest": bson.M{"$max": "$created_at"},
		}}},
	}
}

func createdBounds(ctx context.Context, coll string, filter bson.M) (time.Time, time.Time, error) {
	cursor, err := database.DB.Collection(coll).Aggregate(ctx, boundsPipeline(filter))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Oldest time.Time `bson:"oldest"`
		Newest time.Time `bson:"newest"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if len(results) == 0 {
		return time.Time{}, time.Time{}, nil
	}
	return results[0].Oldest, results[0].Newest, nil
}

func GetEntryByUUID(ctx context.Context, projectID bson.ObjectID, uuid string) (*models.Entry, error) {
	var entry models.Entry
	err := database.DB.Collection(entriesColl).
		FindOne(ctx, bson.M{"project_id": projectID, "uuid": uuid}).
		Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func InsertEntry(ctx context.Context, entry models.Entry) error {
	_, err := database.DB.Collection(entriesColl).InsertOne(ctx, entry)
	return err
}

func InsertBranchEntry(ctx context.Context, entry models.BranchEntry) error {
	_, err := database.DB.Collection(branchEntriesColl).InsertOne(ctx, entry)
	return err
}

func DeleteEntries(ctx context.Context, projectID bson.ObjectID, uuids []string) error {
	if len(uuids) == 0 {
		return nil
	}
	_, err := database.DB.Collection(entriesColl).
		DeleteMany(ctx, bson.M{"project_id": projectID, "uuid": bson.M{"$in": uuids}})
	return err
}

func DeleteBranchEntriesByOwners(ctx context.Context, projectID bson.ObjectID, ownerUUIDs []string) error {
	if len(ownerUUIDs) == 0 {
		return nil
	}
	_, err := database.DB.Collection(branchEntriesColl).
		DeleteMany(ctx, bson.M{"project_id": projectID, "owner_uuid": bson.M{"$in": ownerUUIDs}})
	return err
}

// ChildUUIDs lists the direct children of a parent entry.
func ChildUUIDs(ctx context.Context, projectID bson.ObjectID, parentUUID string) ([]string, error) {
	cursor, err := database.DB.Collection(entriesColl).Find(
		ctx,
		bson.M{"project_id": projectID, "parent_uuid": parentUUID},
		options.Find().SetProjection(bson.M{"uuid": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		UUID string `bson:"uuid"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	uuids := make([]string, 0, len(rows))
	for _, r := range rows {
		uuids = append(uuids, r.UUID)
	}
	return uuids, nil
}
