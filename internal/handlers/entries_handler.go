package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/epicollect5/epicollect5-server-sub006/config"
	"github.com/epicollect5/epicollect5-server-sub006/dto"
	"github.com/epicollect5/epicollect5-server-sub006/internal/mapping"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
	"github.com/epicollect5/epicollect5-server-sub006/internal/repository"
	"github.com/epicollect5/epicollect5-server-sub006/internal/services"
)

// resolveMapping turns the map_index query param into the active mapping.
// Index 0 (or absence of any stored mapping) selects the generated auto
// mapping; an index with no stored mapping behind it is rejected.
func resolveMapping(c *fiber.Ctx, project *models.Project) (*models.ProjectMapping, *dto.APIError) {
	raw := c.Query("map_index")
	if raw == "" {
		stored, err := repository.GetDefaultMapping(c.Context(), project.ID)
		if err != nil {
			apiErr := dto.NewError(dto.CodeInvalidQueryParam, "map_index")
			return nil, &apiErr
		}
		return stored, nil // nil selects the auto mapping
	}

	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		apiErr := dto.NewError(dto.CodeInvalidMapIndex, "map_index")
		return nil, &apiErr
	}
	if idx == models.AutoMapIndex {
		return nil, nil
	}
	stored, err := repository.GetMapping(c.Context(), project.ID, idx)
	if err != nil || stored == nil {
		apiErr := dto.NewError(dto.CodeInvalidMapIndex, "map_index")
		return nil, &apiErr
	}
	return stored, nil
}

// BrowseEntries serves the paginated JSON envelope for entries or branch
// entries, role-scoped and rendered through the active mapping.
func BrowseEntries(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		project, apiErr := getProject(c)
		if apiErr != nil {
			return respondErrors(c, fiber.StatusNotFound, *apiErr)
		}

		page, perPage, apiErr := parsePaging(c, 50, cfg.PerPageMaxJSON)
		if apiErr != nil {
			return respondErrors(c, fiber.StatusBadRequest, *apiErr)
		}

		q := buildQuery(c, project)
		if project.FormByRef(q.FormRef) == nil {
			return respondErrors(c, fiber.StatusBadRequest, dto.NewError(dto.CodeFormNotFound, q.FormRef))
		}
		q.Page, q.PerPage = page, perPage

		m, apiErr := resolveMapping(c, project)
		if apiErr != nil {
			return respondErrors(c, fiber.StatusBadRequest, *apiErr)
		}
		engine, err := mapping.NewEngine(project, q.FormRef, q.BranchRef, cfg.APIURL, m)
		if err != nil {
			return respondErrors(c, fiber.StatusBadRequest, dto.NewError(dto.CodeInvalidQueryParam, "branch_ref"))
		}

		userID, _ := requester(c)

		rows, total, oldest, newest, err := fetchRows(c.Context(), q, userID)
		if err != nil {
			zap.S().Errorw("entries search failed", "project", project.Slug, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "search failed")
		}

		rendered := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			rendered = append(rendered, engine.RenderJSON(row, true))
		}

		meta := dto.NewPageMeta(total, perPage, page, oldest, newest)
		links := dto.NewPageLinks(cfg.APIURL+c.Path(), queryValues(c), page, meta.LastPage)

		return c.JSON(dto.EntriesResponse{
			Data: dto.EntriesData{
				ID:      project.Ref,
				Type:    "entries",
				Entries: rendered,
			},
			Meta:  meta,
			Links: links,
		})
	}
}

// DeleteEntry removes one entry and its whole subtree. Collectors may only
// delete their own entries; curators and viewers may not delete at all.
func DeleteEntry() fiber.Handler {
	return func(c *fiber.Ctx) error {
		project, apiErr := getProject(c)
		if apiErr != nil {
			return respondErrors(c, fiber.StatusNotFound, *apiErr)
		}

		userID, role := requester(c)
		entryUUID := c.Params("uuid")

		entry, err := repository.GetEntryByUUID(c.Context(), project.ID, entryUUID)
		if err != nil {
			zap.S().Errorw("entry lookup failed", "uuid", entryUUID, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
		}
		if entry == nil {
			return respondErrors(c, fiber.StatusNotFound, dto.NewError(dto.CodeEntryNotFound, entryUUID))
		}

		switch role {
		case models.RoleCollector:
			if entry.UserID != userID {
				return respondErrors(c, fiber.StatusForbidden, dto.NewError(dto.CodeNotAuthorized, entryUUID))
			}
		case models.RoleViewer, models.RoleCurator:
			return respondErrors(c, fiber.StatusForbidden, dto.NewError(dto.CodeNotAuthorized, entryUUID))
		}

		if err := services.DeleteEntry(c.Context(), project, entryUUID); err != nil {
			var domainErr dto.APIError
			if asAPIError(err, &domainErr) {
				return respondErrors(c, fiber.StatusBadRequest, domainErr)
			}
			zap.S().Errorw("entry delete failed", "uuid", entryUUID, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "delete failed")
		}

		return c.JSON(fiber.Map{"data": fiber.Map{"id": entryUUID, "deleted": true}})
	}
}
