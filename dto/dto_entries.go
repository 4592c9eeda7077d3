package dto

import "github.com/epicollect5/epicollect5-server-sub006/internal/models"

// Upload body: one answer document per request.
type UploadRequest struct {
	Data models.Document `json:"data"`
}

type UploadResponse struct {
	Data UploadResult `json:"data"`
}

type UploadResult struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// EntriesResponse is the JSON export/browse envelope. Entries carries the
// rendered documents for type "entries"; GeoJSON carries the feature
// collection for type "geojson".
type EntriesResponse struct {
	Data  EntriesData `json:"data"`
	Meta  PageMeta    `json:"meta"`
	Links PageLinks   `json:"links"`
}

type EntriesData struct {
	ID      string                       `json:"id"`
	Type    string                       `json:"type"`
	Entries []map[string]any             `json:"entries,omitempty"`
	GeoJSON *models.GeoFeatureCollection `json:"geojson,omitempty"`
}
