package mapping

import (
	"fmt"
	"time"

	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

// Row is the renderer's view of one stored entry: the parsed answers plus
// the row-level columns every output format needs.
type Row struct {
	UUID       string
	ParentUUID string
	OwnerUUID  string
	Title      string
	UserID     string
	CreatedAt  time.Time
	UploadedAt time.Time

	Answers      map[string]models.Answer
	BranchCounts map[string]int64
	ChildCounts  map[string]int64
	Geo          map[string]models.GeoFeature
}

func FromEntry(e *models.Entry) (Row, error) {
	doc, err := e.Document()
	if err != nil {
		return Row{}, fmt.Errorf("parse entry document %s: %w", e.UUID, err)
	}
	payload := doc.Payload()
	if payload == nil {
		return Row{}, fmt.Errorf("entry document %s holds no payload", e.UUID)
	}
	return Row{
		UUID:         e.UUID,
		ParentUUID:   e.ParentUUID,
		Title:        e.Title,
		UserID:       e.UserID,
		CreatedAt:    e.CreatedAt,
		UploadedAt:   e.UploadedAt,
		Answers:      payload.Answers,
		BranchCounts: e.BranchCounts,
		ChildCounts:  e.ChildCounts,
		Geo:          e.Geo,
	}, nil
}

func FromBranchEntry(b *models.BranchEntry) (Row, error) {
	doc, err := b.Document()
	if err != nil {
		return Row{}, fmt.Errorf("parse branch entry document %s: %w", b.UUID, err)
	}
	payload := doc.Payload()
	if payload == nil {
		return Row{}, fmt.Errorf("branch entry document %s holds no payload", b.UUID)
	}
	return Row{
		UUID:       b.UUID,
		OwnerUUID:  b.OwnerUUID,
		Title:      b.Title,
		UserID:     b.UserID,
		CreatedAt:  b.CreatedAt,
		UploadedAt: b.UploadedAt,
		Answers:    payload.Answers,
		Geo:        b.Geo,
	}, nil
}
