package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/epicollect5/epicollect5-server-sub006/dto"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
	"github.com/epicollect5/epicollect5-server-sub006/internal/services"
)

// Upload accepts one answer document (entry or branch entry), assumed
// type/range validated upstream, and runs the structural assembly plus
// uniqueness checks. Rejections carry a single coded error bound to the
// offending field; nothing is persisted on rejection.
func Upload() fiber.Handler {
	return func(c *fiber.Ctx) error {
		project, apiErr := getProject(c)
		if apiErr != nil {
			return respondErrors(c, fiber.StatusNotFound, *apiErr)
		}
		if project.Status != models.StatusActive {
			return respondErrors(c, fiber.StatusForbidden, dto.NewError(dto.CodeNotAuthorized, project.Slug))
		}

		var body dto.UploadRequest
		if err := c.BodyParser(&body); err != nil {
			return respondErrors(c, fiber.StatusBadRequest, dto.NewError(dto.CodeInvalidQueryParam, "body"))
		}

		userID, _ := requester(c)
		doc := body.Data

		var (
			resultUUID  string
			resultTitle string
			err         error
		)
		switch doc.Type {
		case "entry":
			var entry *models.Entry
			entry, err = services.CreateEntry(c.Context(), project, &doc, userID)
			if entry != nil {
				resultUUID, resultTitle = entry.UUID, entry.Title
			}
		case "branch_entry":
			var entry *models.BranchEntry
			entry, err = services.CreateBranchEntry(c.Context(), project, &doc, userID)
			if entry != nil {
				resultUUID, resultTitle = entry.UUID, entry.Title
			}
		default:
			return respondErrors(c, fiber.StatusBadRequest, dto.NewError(dto.CodeInvalidQueryParam, "type"))
		}

		if err != nil {
			var domainErr dto.APIError
			if asAPIError(err, &domainErr) {
				return respondErrors(c, fiber.StatusBadRequest, domainErr)
			}
			zap.S().Errorw("upload failed", "project", project.Slug, "type", doc.Type, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "upload failed")
		}

		return c.Status(fiber.StatusCreated).JSON(dto.UploadResponse{
			Data: dto.UploadResult{ID: resultUUID, Type: doc.Type, Title: resultTitle},
		})
	}
}
