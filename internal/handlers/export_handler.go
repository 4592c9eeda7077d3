package handlers

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/epicollect5/epicollect5-server-sub006/config"
	"github.com/epicollect5/epicollect5-server-sub006/dto"
	"github.com/epicollect5/epicollect5-server-sub006/internal/mapping"
	"github.com/epicollect5/epicollect5-server-sub006/internal/models"
	"github.com/epicollect5/epicollect5-server-sub006/internal/services"
)

// ExportEntries serves the export JSON document; format=geojson switches
// the payload to the FeatureCollection projection of location answers.
func ExportEntries(cfg config.Config) fiber.Handler {
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
		geoFormat := c.Query("format") == "geojson"

		rows, total, oldest, newest, err := fetchRows(c.Context(), q, userID)
		if err != nil {
			zap.S().Errorw("export search failed", "project", project.Slug, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "search failed")
		}

		meta := dto.NewPageMeta(total, perPage, page, oldest, newest)
		links := dto.NewPageLinks(cfg.APIURL+c.Path(), queryValues(c), page, meta.LastPage)

		data := dto.EntriesData{ID: project.Ref, Type: "entries"}
		if geoFormat {
			data.Type = "geojson"
			collection := &models.GeoFeatureCollection{Type: "FeatureCollection", Features: []models.GeoFeature{}}
			for _, row := range rows {
				collection.Features = append(collection.Features, engine.RenderGeoJSON(row)...)
			}
			data.GeoJSON = collection
		} else {
			rendered := make([]map[string]any, 0, len(rows))
			for _, row := range rows {
				rendered = append(rendered, engine.RenderJSON(row, true))
			}
			data.Entries = rendered
		}

		return c.JSON(dto.EntriesResponse{Data: data, Meta: meta, Links: links})
	}
}

// ExportEntriesCSV streams the CSV export: reader and writer advance in
// lockstep, one row at a time, so export size never bounds memory. All
// validation happens before the first byte is flushed; a failure after
// that invalidates the whole output.
func ExportEntriesCSV(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		project, apiErr := getProject(c)
		if apiErr != nil {
			return respondErrors(c, fiber.StatusNotFound, *apiErr)
		}

		_, perPage, apiErr := parsePaging(c, cfg.PerPageMaxCSV, cfg.PerPageMaxCSV)
		if apiErr != nil {
			return respondErrors(c, fiber.StatusBadRequest, *apiErr)
		}

		q := buildQuery(c, project)
		if project.FormByRef(q.FormRef) == nil {
			return respondErrors(c, fiber.StatusBadRequest, dto.NewError(dto.CodeFormNotFound, q.FormRef))
		}
		q.PerPage = perPage

		m, apiErr := resolveMapping(c, project)
		if apiErr != nil {
			return respondErrors(c, fiber.StatusBadRequest, *apiErr)
		}
		engine, err := mapping.NewEngine(project, q.FormRef, q.BranchRef, cfg.APIURL, m)
		if err != nil {
			return respondErrors(c, fiber.StatusBadRequest, dto.NewError(dto.CodeInvalidQueryParam, "branch_ref"))
		}

		userID, _ := requester(c)
		withHeader := c.Query("headers", "true") != "false"
		slug := project.Slug

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+slug+`.csv"`)

		// The stream writer runs after this handler returns, so it works
		// off its own context and captured state only.
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			ctx := context.Background()
			exporter := mapping.NewCSVExporter(engine, w)

			if withHeader {
				if err := exporter.WriteHeader(); err != nil {
					zap.S().Errorw("csv export aborted", "project", slug, "error", err)
					return
				}
			}

			for page := int64(1); ; page++ {
				q.Page = page
				rows, _, _, _, err := fetchRows(ctx, q, userID)
				if err != nil {
					zap.S().Errorw("csv export aborted", "project", slug, "page", page, "error", err)
					return
				}
				for _, row := range rows {
					if err := exporter.WriteRow(row); err != nil {
						zap.S().Errorw("csv export aborted", "project", slug, "error", err)
						return
					}
				}
				if int64(len(rows)) < q.PerPage {
					break
				}
			}
			if err := exporter.Close(); err != nil {
				zap.S().Errorw("csv export aborted", "project", slug, "error", err)
			}
		})
		return nil
	}
}

// fetchRows runs the scoped search for either entries or branch entries
// and lifts the results into renderer rows.
func fetchRows(ctx context.Context, q models.EntryQuery, userID string) ([]mapping.Row, int64, time.Time, time.Time, error) {
	if q.BranchRef != "" {
		result, err := services.SearchBranchEntries(ctx, q)
		if err != nil {
			return nil, 0, time.Time{}, time.Time{}, err
		}
		rows := make([]mapping.Row, 0, len(result.Entries))
		for i := range result.Entries {
			row, err := mapping.FromBranchEntry(&result.Entries[i])
			if err != nil {
				return nil, 0, time.Time{}, time.Time{}, err
			}
			row.UserID = userID
			rows = append(rows, row)
		}
		return rows, result.Total, result.Oldest, result.Newest, nil
	}

	result, err := services.SearchEntries(ctx, q)
	if err != nil {
		return nil, 0, time.Time{}, time.Time{}, err
	}
	rows := make([]mapping.Row, 0, len(result.Entries))
	for i := range result.Entries {
		row, err := mapping.FromEntry(&result.Entries[i])
		if err != nil {
			return nil, 0, time.Time{}, time.Time{}, err
		}
		row.UserID = userID
		rows = append(rows, row)
	}
	return rows, result.Total, result.Oldest, result.Newest, nil
}
