package services

import (
	"context"
	"testing"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGeoJSONService_RelationalColumnsWin(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewRegionService(db)
	geo := NewGeoJSONService(db, zap.NewNop())

	// Stored document already claims a different owner and code; the
	// relational columns must override both.
	stored := `{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"owner":"mallory","code":"OLD","label":"kept"}}`
	_, err := svc.Create(ctx, models.RegionInput{
		Name:        "Xyzland",
		Code:        strptr("XYZ"),
		GeoJSONData: &stored,
		Owner:       strptr("alice"),
	})
	require.NoError(t, err)

	fc, err := geo.FeatureCollection(ctx)
	require.NoError(t, err)
	require.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)

	feature := fc.Features[0]
	require.Equal(t, "Feature", feature.Type)
	require.Equal(t, "Polygon", feature.Geometry["type"])
	require.Equal(t, "alice", *feature.Properties["owner"].(*string))
	require.Equal(t, "XYZ", *feature.Properties["code"].(*string))
	require.Nil(t, feature.Properties["parent_id"].(*int64))
	// Unrelated embedded properties survive.
	require.Equal(t, "kept", feature.Properties["label"])
}

func TestGeoJSONService_WrapsBareGeometry(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewRegionService(db)
	geo := NewGeoJSONService(db, zap.NewNop())

	usaID, err := svc.Create(ctx, models.RegionInput{Name: "United States", Code: strptr("USA")})
	require.NoError(t, err)

	// Importers store bare geometry objects without a Feature wrapper.
	bare := `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`
	_, err = svc.Create(ctx, models.RegionInput{
		Name:        "California",
		Code:        strptr("US-CA"),
		RegionType:  "state",
		ParentID:    &usaID,
		GeoJSONData: &bare,
	})
	require.NoError(t, err)

	fc, err := geo.FeatureCollection(ctx)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	feature := fc.Features[0]
	require.Equal(t, "Feature", feature.Type)
	require.Equal(t, "Polygon", feature.Geometry["type"])
	require.Equal(t, "US-CA", *feature.Properties["code"].(*string))
	require.Equal(t, usaID, *feature.Properties["parent_id"].(*int64))
}

func TestGeoJSONService_SkipsRegionsWithoutOrMalformedGeometry(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewRegionService(db)
	geo := NewGeoJSONService(db, zap.NewNop())

	// No geometry at all: excluded by the query.
	_, err := svc.Create(ctx, models.RegionInput{Name: "No Geometry", Code: strptr("NOG")})
	require.NoError(t, err)

	// Malformed geometry: skipped, not fatal for the whole collection.
	_, err = svc.Create(ctx, models.RegionInput{
		Name:        "Broken",
		Code:        strptr("BRK"),
		GeoJSONData: strptr(`{"type":"Polygon",`),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, models.RegionInput{
		Name:        "Good",
		Code:        strptr("GOO"),
		GeoJSONData: strptr(`{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`),
	})
	require.NoError(t, err)

	fc, err := geo.FeatureCollection(ctx)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	require.Equal(t, "GOO", *fc.Features[0].Properties["code"].(*string))
}
