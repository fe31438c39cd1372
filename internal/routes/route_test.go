package routes

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/config"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/logger"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().
		Model((*models.Region)(nil)).
		IfNotExists().
		ForeignKey(`("parent_id") REFERENCES "regions" ("id") ON DELETE CASCADE`).
		Exec(context.Background())
	require.NoError(t, err)

	cfg := &config.Config{
		Environment:    "development",
		StaticDir:      t.TempDir(),
		AllowedOrigins: []string{"*"},
	}

	srv := httptest.NewServer(NewRouter(db, cfg, logger.New(cfg)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestRouter_RegionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Create
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{
		"name":  "France",
		"code":  "FRA",
		"owner": "alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "Region created successfully", body["message"])
	id := int64(body["id"].(float64))
	require.NotZero(t, id)

	// Fetch by id
	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/region/%d", srv.URL, id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "France", body["name"])
	require.Equal(t, "alice", body["owner"])

	// Fetch by code
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/region/code/FRA", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "France", body["name"])

	// Full update: omitted owner becomes null
	resp, body = doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/region/%d", srv.URL, id), map[string]any{
		"name": "French Republic",
		"code": "FRA",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Region updated successfully", body["message"])

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/region/%d", srv.URL, id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "French Republic", body["name"])
	require.Nil(t, body["owner"])

	// Delete
	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/region/%d", srv.URL, id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/region/%d", srv.URL, id), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Region not found", body["error"])
}

func TestRouter_NotFoundAndValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/region/42", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Region not found", body["error"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/region/code/ZZZ", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Region not found", body["error"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{
		"name": "Mars", "parent_id": 9999,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Duplicate code surfaces as a conflict.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{"name": "Japan", "code": "JPN"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{"name": "Nippon", "code": "JPN"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_ListFilters(t *testing.T) {
	srv := newTestServer(t)

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{"name": "United States", "code": "USA"})
	usaID := int64(body["id"].(float64))

	for _, state := range []string{"California", "Texas"} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{
			"name": state, "region_type": "state", "parent_id": usaID,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var regions []models.Region

	resp, err := http.Get(srv.URL + "/api/regions")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&regions))
	_ = resp.Body.Close()
	require.Len(t, regions, 3)

	resp, err = http.Get(srv.URL + "/api/regions?type=state")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&regions))
	_ = resp.Body.Close()
	require.Len(t, regions, 2)

	resp, err = http.Get(fmt.Sprintf("%s/api/regions?type=state&parent_id=%d", srv.URL, usaID))
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&regions))
	_ = resp.Body.Close()
	require.Len(t, regions, 2)

	resp, err = http.Get(srv.URL + "/api/regions?parent_id=banana")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_GeoJSONAggregation(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{
		"name":         "Xyzland",
		"code":         "XYZ",
		"owner":        "alice",
		"geojson_data": `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Region without geometry must not appear in the collection.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/region", map[string]any{"name": "Nowhere", "code": "NWH"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var fc models.FeatureCollection
	httpResp, err := http.Get(srv.URL + "/api/regions/geojson")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&fc))

	require.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	require.Equal(t, "alice", fc.Features[0].Properties["owner"])
	require.Equal(t, "XYZ", fc.Features[0].Properties["code"])
}
