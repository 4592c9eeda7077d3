package handlers

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/epicollect5/epicollect5-server-sub006/dto"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
	"github.com/epicollect5/epicollect5-server-sub006/internal/repository"
)

func respondErrors(c *fiber.Ctx, status int, errs ...dto.APIError) error {
	return c.Status(status).JSON(dto.Errors(errs...))
}

// requester pulls the authenticated user id and role out of the locals the
// JWT middleware set. Anonymous requests browse as viewers.
func requester(c *fiber.Ctx) (userID, role string) {
	if uid, ok := c.Locals("user_id").(string); ok {
		userID = uid
	}
	role = models.RoleViewer
	if r, ok := c.Locals("role").(string); ok && r != "" {
		role = r
	}
	return userID, role
}

func getProject(c *fiber.Ctx) (*models.Project, *dto.APIError) {
	slug := c.Params("slug")
	project, err := repository.GetProjectBySlug(c.Context(), slug)
	if err != nil || project == nil {
		apiErr := dto.NewError(dto.CodeProjectNotFound, slug)
		return nil, &apiErr
	}
	return project, nil
}

// parsePaging validates page/per_page against the format's cap before any
// query runs. Requests over the cap are rejected, not truncated.
func parsePaging(c *fiber.Ctx, defaultPerPage, maxPerPage int64) (page, perPage int64, apiErr *dto.APIError) {
	page, _ = strconv.ParseInt(c.Query("page", "1"), 10, 64)
	if page < 1 {
		page = 1
	}

	perPage = defaultPerPage
	if raw := c.Query("per_page"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			e := dto.NewError(dto.CodeInvalidQueryParam, "per_page")
			return 0, 0, &e
		}
		perPage = n
	}
	if perPage > maxPerPage {
		e := dto.NewError(dto.CodePerPageExceeded, "per_page")
		return 0, 0, &e
	}
	return page, perPage, nil
}

// buildQuery assembles the search options from the request, injecting the
// role-forced user filter before anything reaches the repository: a
// collector only ever sees their own rows, every other role sees all rows
// no matter what user_id the request carried.
func buildQuery(c *fiber.Ctx, project *models.Project) models.EntryQuery {
	q := models.EntryQuery{
		ProjectID:       project.ID,
		FormRef:         c.Query("form_ref", project.FirstFormRef()),
		UUID:            c.Query("uuid"),
		ParentUUID:      c.Query("parent_uuid"),
		BranchRef:       c.Query("branch_ref"),
		BranchOwnerUUID: c.Query("branch_owner_uuid"),
		SortBy:          c.Query("sort_by"),
		SortOrder:       c.Query("sort_order"),
	}

	userID, role := requester(c)
	if !models.RoleCanViewAll(role) {
		q.UserID = userID
	}
	return q
}

func queryValues(c *fiber.Ctx) url.Values {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})
	return values
}

func asAPIError(err error, target *dto.APIError) bool {
	return errors.As(err, target)
}
