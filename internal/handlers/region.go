package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/models"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegionHandler handles HTTP requests for regions
type RegionHandler struct {
	service *services.RegionService
	geojson *services.GeoJSONService
	logr    *zap.Logger
}

// NewRegionHandler creates a new region handler
func NewRegionHandler(svc *services.RegionService, geo *services.GeoJSONService, logr *zap.Logger) *RegionHandler {
	return &RegionHandler{
		service: svc,
		geojson: geo,
		logr:    logr,
	}
}

// ListRegions handles GET /api/regions?type=&parent_id=
func (h *RegionHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := models.RegionFilter{
		RegionType: q.Get("type"),
	}

	if raw := q.Get("parent_id"); raw != "" {
		parentID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid parent_id parameter",
			})
			return
		}
		filter.ParentID = &parentID
	}

	regions, err := h.service.List(ctx, filter)
	if err != nil {
		h.logr.Error("failed to list regions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to retrieve regions",
		})
		return
	}

	writeJSON(w, http.StatusOK, regions)
}

// GetRegionsGeoJSON handles GET /api/regions/geojson
func (h *RegionHandler) GetRegionsGeoJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	collection, err := h.geojson.FeatureCollection(ctx)
	if err != nil {
		h.logr.Error("failed to build feature collection", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to retrieve region boundaries",
		})
		return
	}

	writeJSON(w, http.StatusOK, collection)
}

// GetRegionByID handles GET /api/region/{id}
func (h *RegionHandler) GetRegionByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	region, err := h.service.GetByID(ctx, id)
	if err != nil {
		h.writeServiceError(w, err, zap.Int64("id", id))
		return
	}

	writeJSON(w, http.StatusOK, region)
}

// GetRegionByCode handles GET /api/region/code/{code}
func (h *RegionHandler) GetRegionByCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	region, err := h.service.GetByCode(ctx, code)
	if err != nil {
		h.writeServiceError(w, err, zap.String("code", code))
		return
	}

	writeJSON(w, http.StatusOK, region)
}

// CreateRegion handles POST /api/region
func (h *RegionHandler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in models.RegionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
		return
	}

	id, err := h.service.Create(ctx, in)
	if err != nil {
		h.writeServiceError(w, err, zap.String("name", in.Name))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":      id,
		"message": "Region created successfully",
	})
}

// UpdateRegion handles PUT /api/region/{id}
func (h *RegionHandler) UpdateRegion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var in models.RegionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
		return
	}

	if err := h.service.Update(ctx, id, in); err != nil {
		h.writeServiceError(w, err, zap.Int64("id", id))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Region updated successfully",
	})
}

// DeleteRegion handles DELETE /api/region/{id}. Deletion cascades to every
// descendant region.
func (h *RegionHandler) DeleteRegion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.writeServiceError(w, err, zap.Int64("id", id))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Region deleted successfully",
	})
}

// writeServiceError maps region service errors onto HTTP responses.
func (h *RegionHandler) writeServiceError(w http.ResponseWriter, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, services.ErrRegionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "Region not found",
		})
	case errors.Is(err, services.ErrDuplicateCode):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "A region with this code already exists",
		})
	case errors.Is(err, services.ErrNameRequired):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Region name is required",
		})
	case errors.Is(err, services.ErrParentNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Parent region does not exist",
		})
	case errors.Is(err, services.ErrHierarchyCycle):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "parent_id would create a cycle in the region hierarchy",
		})
	default:
		h.logr.Error("region request failed", append(fields, zap.Error(err))...)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid id parameter",
		})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(data)
}
