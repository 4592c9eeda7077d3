package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Entry is one submitted hierarchy-form record. The answer document itself
// is kept as serialized JSON in EntryDoc; everything else on the row is
// either an identity/lookup column or denormalized from the document.
// Rows are immutable after upload except for the count columns.
type Entry struct {
	ID            bson.ObjectID         `json:"id" bson:"_id,omitempty"`
	UUID          string                `json:"uuid" bson:"uuid"`
	ProjectID     bson.ObjectID         `json:"projectId" bson:"project_id"`
	FormRef       string                `json:"formRef" bson:"form_ref"`
	ParentUUID    string                `json:"parentUuid,omitempty" bson:"parent_uuid,omitempty"`
	ParentFormRef string                `json:"parentFormRef,omitempty" bson:"parent_form_ref,omitempty"`
	TopUUID       string                `json:"topUuid" bson:"top_uuid"`
	EntryDoc      string                `json:"entryDoc" bson:"entry_doc"`
	AnswersNorm   map[string]string     `json:"-" bson:"answers_norm,omitempty"`
	Title         string                `json:"title" bson:"title"`
	UserID        string                `json:"userId" bson:"user_id"`
	DeviceID      string                `json:"deviceId,omitempty" bson:"device_id,omitempty"`
	Platform      string                `json:"platform,omitempty" bson:"platform,omitempty"`
	UploadedAt    time.Time             `json:"uploadedAt" bson:"uploaded_at"`
	CreatedAt     time.Time             `json:"createdAt" bson:"created_at"`
	BranchCounts  map[string]int64      `json:"branchCounts,omitempty" bson:"branch_counts,omitempty"`
	ChildCounts   map[string]int64      `json:"childCounts,omitempty" bson:"child_counts,omitempty"`
	Geo           map[string]GeoFeature `json:"geo,omitempty" bson:"geo,omitempty"`
}

// BranchEntry is one submitted branch record: the same shape as Entry plus
// the owning entry and the branch input it answers. OwnerEntryID is the
// resolved row id of the owner, set before persistence.
type BranchEntry struct {
	ID            bson.ObjectID         `json:"id" bson:"_id,omitempty"`
	UUID          string                `json:"uuid" bson:"uuid"`
	ProjectID     bson.ObjectID         `json:"projectId" bson:"project_id"`
	FormRef       string                `json:"formRef" bson:"form_ref"`
	OwnerUUID     string                `json:"ownerUuid" bson:"owner_uuid"`
	OwnerInputRef string                `json:"ownerInputRef" bson:"owner_input_ref"`
	OwnerEntryID  bson.ObjectID         `json:"ownerEntryId" bson:"owner_entry_id"`
	TopUUID       string                `json:"topUuid" bson:"top_uuid"`
	EntryDoc      string                `json:"entryDoc" bson:"entry_doc"`
	AnswersNorm   map[string]string     `json:"-" bson:"answers_norm,omitempty"`
	Title         string                `json:"title" bson:"title"`
	UserID        string                `json:"userId" bson:"user_id"`
	DeviceID      string                `json:"deviceId,omitempty" bson:"device_id,omitempty"`
	Platform      string                `json:"platform,omitempty" bson:"platform,omitempty"`
	UploadedAt    time.Time             `json:"uploadedAt" bson:"uploaded_at"`
	CreatedAt     time.Time             `json:"createdAt" bson:"created_at"`
	Geo           map[string]GeoFeature `json:"geo,omitempty" bson:"geo,omitempty"`
}

// Document is the wire shape of the stored answer document.
type Document struct {
	Type          string         `json:"type"`
	ID            string         `json:"id"`
	Attributes    DocAttributes  `json:"attributes"`
	Relationships DocRelations   `json:"relationships"`
	Entry         *DocumentEntry `json:"entry,omitempty"`
	BranchEntry   *DocumentEntry `json:"branch_entry,omitempty"`
}

type DocAttributes struct {
	Form DocForm `json:"form"`
}

type DocForm struct {
	Ref  string `json:"ref"`
	Type string `json:"type"`
}

type DocRelations struct {
	Parent DocRelation `json:"parent"`
	Branch DocRelation `json:"branch"`
}

type DocRelation struct {
	Data map[string]string `json:"data,omitempty"`
}

type DocumentEntry struct {
	EntryUUID      string            `json:"entry_uuid"`
	CreatedAt      string            `json:"created_at"`
	DeviceID       string            `json:"device_id,omitempty"`
	Platform       string            `json:"platform,omitempty"`
	Title          string            `json:"title"`
	Answers        map[string]Answer `json:"answers"`
	ProjectVersion string            `json:"project_version"`
}

// Payload returns whichever of entry/branch_entry the document carries.
func (d *Document) Payload() *DocumentEntry {
	if d.Entry != nil {
		return d.Entry
	}
	return d.BranchEntry
}

func (d *Document) Serialize() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ParseDocument(raw string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (e *Entry) Document() (*Document, error) {
	return ParseDocument(e.EntryDoc)
}

func (b *BranchEntry) Document() (*Document, error) {
	return ParseDocument(b.EntryDoc)
}
