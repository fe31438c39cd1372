package routes

import (
	"net/http"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/config"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/handlers"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/logger"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/uptrace/bun"
)

func NewRouter(db *bun.DB, cfg *config.Config, logr *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	regionSvc := services.NewRegionService(db)
	geojsonSvc := services.NewGeoJSONService(db, logr.Logger)

	regionHandler := handlers.NewRegionHandler(regionSvc, geojsonSvc, logr.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			return
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", regionHandler.ListRegions)
		r.Get("/regions/geojson", regionHandler.GetRegionsGeoJSON)

		r.Route("/region", func(r chi.Router) {
			r.Post("/", regionHandler.CreateRegion)
			r.Get("/code/{code}", regionHandler.GetRegionByCode)
			r.Get("/{id}", regionHandler.GetRegionByID)
			r.Put("/{id}", regionHandler.UpdateRegion)
			r.Delete("/{id}", regionHandler.DeleteRegion)
		})
	})

	// Static SPA shell for the globe front end
	r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))

	return r
}
