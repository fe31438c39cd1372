package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Region is a named geographic/administrative area, possibly nested under a
// parent region (country -> state/province). geojson_data and custom_data are
// opaque serialized strings at the storage boundary; only the importer and
// the GeoJSON aggregator parse them.
type Region struct {
	bun.BaseModel `bun:"table:regions,alias:r"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Code        *string   `bun:"code,unique" json:"code"`
	ParentID    *int64    `bun:"parent_id" json:"parent_id"`
	RegionType  string    `bun:"region_type,notnull,default:'country'" json:"region_type"`
	GeoJSONData *string   `bun:"geojson_data" json:"geojson_data"`
	CustomData  *string   `bun:"custom_data" json:"custom_data"`
	Owner       *string   `bun:"owner" json:"owner"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// RegionInput carries the mutable fields for create/update/upsert. Updates are
// full replacements: a nil pointer here overwrites the stored column with NULL.
type RegionInput struct {
	Name        string  `json:"name"`
	Code        *string `json:"code"`
	ParentID    *int64  `json:"parent_id"`
	RegionType  string  `json:"region_type"`
	GeoJSONData *string `json:"geojson_data"`
	CustomData  *string `json:"custom_data"`
	Owner       *string `json:"owner"`
}

// RegionFilter holds the optional equality predicates for listing regions.
// Both are ANDed when present.
type RegionFilter struct {
	RegionType string
	ParentID   *int64
}

// Feature is a GeoJSON feature assembled by the aggregator.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   map[string]interface{} `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is the aggregated boundary payload served to the globe
// front end.
type FeatureCollection struct {
	Type     string    `json:"type"` // "FeatureCollection"
	Features []Feature `json:"features"`
}
