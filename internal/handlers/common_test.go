package handlers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/epicollect5/epicollect5-server-sub006/dto"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
)

func testCtx(t *testing.T, app *fiber.App, uri, userID, role string) *fiber.Ctx {
	t.Helper()
	c := app.AcquireCtx(&fasthttp.RequestCtx{})
	t.Cleanup(func() { app.ReleaseCtx(c) })
	c.Request().SetRequestURI(uri)
	if userID != "" {
		c.Locals("user_id", userID)
	}
	if role != "" {
		c.Locals("role", role)
	}
	return c
}

func TestBuildQueryForcesCollectorToOwnRows(t *testing.T) {
	app := fiber.New()
	project := &models.Project{Definition: models.ProjectDefinition{Forms: []models.Form{{Ref: "form_0"}}}}

	c := testCtx(t, app, "/api/entries?user_id=someone-else", "user-1", models.RoleCollector)
	q := buildQuery(c, project)
	if q.UserID != "user-1" {
		t.Fatalf("collector query user = %q, want the requester", q.UserID)
	}

	c = testCtx(t, app, "/api/entries?user_id=someone-else", "user-1", models.RoleManager)
	q = buildQuery(c, project)
	if q.UserID != "" {
		t.Fatalf("manager query must not restrict by user, got %q", q.UserID)
	}
}

func TestBuildQueryDefaultsToFirstForm(t *testing.T) {
	app := fiber.New()
	project := &models.Project{Definition: models.ProjectDefinition{Forms: []models.Form{{Ref: "form_0"}, {Ref: "form_1"}}}}

	c := testCtx(t, app, "/api/entries", "", "")
	if q := buildQuery(c, project); q.FormRef != "form_0" {
		t.Fatalf("default form ref = %q", q.FormRef)
	}

	c = testCtx(t, app, "/api/entries?form_ref=form_1&parent_uuid=p1", "", "")
	q := buildQuery(c, project)
	if q.FormRef != "form_1" || q.ParentUUID != "p1" {
		t.Fatalf("query params not carried: %+v", q)
	}
}

func TestParsePagingRejectsOverCap(t *testing.T) {
	app := fiber.New()

	c := testCtx(t, app, "/api/entries?per_page=51", "", "")
	if _, _, apiErr := parsePaging(c, 50, 50); apiErr == nil || apiErr.Code != dto.CodePerPageExceeded {
		t.Fatalf("over-cap per_page should fail with %s, got %v", dto.CodePerPageExceeded, apiErr)
	}

	c = testCtx(t, app, "/api/entries?per_page=abc", "", "")
	if _, _, apiErr := parsePaging(c, 50, 50); apiErr == nil || apiErr.Code != dto.CodeInvalidQueryParam {
		t.Fatalf("malformed per_page should fail with %s, got %v", dto.CodeInvalidQueryParam, apiErr)
	}

	c = testCtx(t, app, "/api/entries?page=-3", "", "")
	page, perPage, apiErr := parsePaging(c, 50, 50)
	if apiErr != nil || page != 1 || perPage != 50 {
		t.Fatalf("negative page should clamp to 1 with defaults, got %d/%d %v", page, perPage, apiErr)
	}
}
