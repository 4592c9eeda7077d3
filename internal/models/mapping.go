package models

import "go.mongodb.org/mongo-driver/v2/bson"

// AutoMapIndex is the reserved index of the generated 1:1 mapping.
const AutoMapIndex = 0

// ProjectMapping is one named column layout for a project's forms. A
// project may store several; exactly one is flagged default.
type ProjectMapping struct {
	ID        bson.ObjectID          `json:"id" bson:"_id,omitempty"`
	ProjectID bson.ObjectID          `json:"projectId" bson:"project_id"`
	MapIndex  int                    `json:"mapIndex" bson:"map_index"`
	Name      string                 `json:"name" bson:"name"`
	IsDefault bool                   `json:"isDefault" bson:"is_default"`
	Forms     map[string]FormMapping `json:"forms" bson:"forms"`
}

// FormMapping is the ordered column layout for one form (or one branch
// input, keyed by the branch input ref).
type FormMapping struct {
	Columns []MapColumn `json:"columns" bson:"columns"`
}

type MapColumn struct {
	InputRef    string `json:"input_ref" bson:"input_ref"`
	ColumnLabel string `json:"column_label" bson:"column_label"`
	TargetIndex int    `json:"target_index" bson:"target_index"`
	Hide        bool   `json:"hide,omitempty" bson:"hide,omitempty"`
}
