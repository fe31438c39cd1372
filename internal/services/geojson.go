package services

import (
	"context"
	"encoding/json"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type GeoJSONService struct {
	db   *bun.DB
	logr *zap.Logger
}

func NewGeoJSONService(db *bun.DB, logr *zap.Logger) *GeoJSONService {
	return &GeoJSONService{db: db, logr: logr}
}

// FeatureCollection assembles every region that has stored geometry into one
// GeoJSON FeatureCollection. Each feature's properties carry owner, code and
// parent_id from the relational columns; relational data always wins over
// whatever the stored document embedded. Regions whose stored geometry fails
// to parse are skipped with a warning rather than failing the whole payload.
func (s *GeoJSONService) FeatureCollection(ctx context.Context) (*models.FeatureCollection, error) {
	var regions []models.Region

	err := s.db.NewSelect().
		Model(&regions).
		Where("geojson_data IS NOT NULL").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	features := make([]models.Feature, 0, len(regions))

	for _, region := range regions {
		feature, ok := s.buildFeature(region)
		if !ok {
			continue
		}
		features = append(features, feature)
	}

	return &models.FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}, nil
}

// buildFeature parses a region's stored geometry document. The importers
// store bare geometry objects ({"type":"Polygon",...}); documents that are
// already full Features are unwrapped instead of double-wrapped.
func (s *GeoJSONService) buildFeature(region models.Region) (models.Feature, bool) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(*region.GeoJSONData), &doc); err != nil {
		s.logr.Warn("skipping region with malformed stored geometry",
			zap.Int64("id", region.ID), zap.Error(err))
		return models.Feature{}, false
	}

	geometry := doc
	properties := map[string]interface{}{}

	if docType, _ := doc["type"].(string); docType == "Feature" {
		geom, ok := doc["geometry"].(map[string]interface{})
		if !ok {
			s.logr.Warn("skipping region feature without geometry object",
				zap.Int64("id", region.ID))
			return models.Feature{}, false
		}
		geometry = geom
		if props, ok := doc["properties"].(map[string]interface{}); ok {
			properties = props
		}
	}

	properties["owner"] = region.Owner
	properties["code"] = region.Code
	properties["parent_id"] = region.ParentID

	return models.Feature{
		Type:       "Feature",
		Geometry:   geometry,
		Properties: properties,
	}, true
}
