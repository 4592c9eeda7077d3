package models

import "math"

// GeoFeature is the cached map projection of one location answer. It is
// derived from the entry's answers and regenerated whenever they change.
type GeoFeature struct {
	Type       string         `json:"type" bson:"type"`
	Geometry   GeoPoint       `json:"geometry" bson:"geometry"`
	Properties map[string]any `json:"properties" bson:"properties"`
}

type GeoPoint struct {
	Type        string     `json:"type" bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

type GeoFeatureCollection struct {
	Type     string       `json:"type"`
	Features []GeoFeature `json:"features"`
}

// RoundCoord truncates a coordinate to 6 decimal digits, the precision the
// mobile clients submit.
func RoundCoord(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// NewPointFeature builds a Feature for a location answer. GeoJSON orders
// coordinates [longitude, latitude].
func NewPointFeature(loc Location, props map[string]any) GeoFeature {
	return GeoFeature{
		Type: "Feature",
		Geometry: GeoPoint{
			Type:        "Point",
			Coordinates: [2]float64{RoundCoord(loc.Longitude), RoundCoord(loc.Latitude)},
		},
		Properties: props,
	}
}
