package services

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/epicollect5/epicollect5-server-sub006/dto"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

func TestCreateEntryRejectsDocumentWithoutPayload(t *testing.T) {
	doc := &models.Document{
		Type:       "entry",
		Attributes: models.DocAttributes{Form: models.DocForm{Ref: "form_0"}},
	}
	_, err := CreateEntry(context.Background(), testProject(), doc, "user-1")
	var apiErr dto.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != dto.CodeInvalidQueryParam {
		t.Fatalf("payload-less document should be rejected as malformed, got %v", err)
	}
}

func TestCreateEntryRejectsUnknownForm(t *testing.T) {
	doc := entryDoc(nil)
	doc.Attributes.Form.Ref = "form_missing"
	_, err := CreateEntry(context.Background(), testProject(), doc, "user-1")
	var apiErr dto.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != dto.CodeFormNotFound {
		t.Fatalf("unknown form should be rejected with %s, got %v", dto.CodeFormNotFound, err)
	}
}

func TestRunUniqueChecksRejectsCollision(t *testing.T) {
	doc := entryDoc(map[string]models.Answer{
		"in_count": {Answer: models.ScalarAnswer("12")},
	})
	b, err := NewEntryBuilder(testProject(), doc, "user-1")
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}

	collide := func(ctx context.Context, scope bson.M, inputRef, normalized, excludeUUID string) (bool, error) {
		return true, nil
	}
	apiErr := runUniqueChecks(context.Background(), testProject(), b, "uuid-top", collide)
	if apiErr == nil || apiErr.Code != dto.CodeNotUnique {
		t.Fatalf("colliding answer should reject with %s, got %v", dto.CodeNotUnique, apiErr)
	}
	if apiErr.Source != "in_count" {
		t.Fatalf("violation should name the offending input, got %q", apiErr.Source)
	}

	free := func(ctx context.Context, scope bson.M, inputRef, normalized, excludeUUID string) (bool, error) {
		return false, nil
	}
	if apiErr := runUniqueChecks(context.Background(), testProject(), b, "uuid-top", free); apiErr != nil {
		t.Fatalf("collision-free answer rejected: %v", apiErr)
	}
}
