package models

import "go.mongodb.org/mongo-driver/v2/bson"

// Sortable columns
const (
	SortByCreatedAt  = "created_at"
	SortByUploadedAt = "uploaded_at"
	SortByTitle      = "title"
)

// EntryQuery carries the caller's search options. The handler resolves the
// role before building one of these: a collector request always arrives
// with UserID forced to the requester, so the repository only ever applies
// whatever filter it is given.
type EntryQuery struct {
	ProjectID       bson.ObjectID
	FormRef         string
	UUID            string
	ParentUUID      string
	BranchRef       string
	BranchOwnerUUID string
	UserID          string
	SortBy          string
	SortOrder       string
	Page            int64
	PerPage         int64
}

func (q EntryQuery) Offset() int64 {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}
