package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/config"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/database"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/importer"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/logger"
	"github.com/codewarden1018/ThreeJSWorldMap/internal/services"
	"go.uber.org/zap"
)

func main() {
	dataset := flag.String("dataset", "", "built-in dataset to import: countries or us-states")
	url := flag.String("url", "", "GeoJSON source URL (custom subdivision import)")
	file := flag.String("file", "", "local GeoJSON file (custom subdivision import)")
	regionType := flag.String("type", "state", "region type for custom imports")
	parent := flag.String("parent", "", "parent region code for custom imports")
	flag.Parse()

	job, err := buildJob(*dataset, *url, *file, *regionType, *parent)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logr := logger.New(cfg)
	defer logr.Sync()

	db, err := database.New(cfg)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	svc := services.NewRegionService(db)
	im := importer.New(svc, cfg.ImportFetchTimeout, logr.Logger)

	report, err := im.Run(context.Background(), job)
	if err != nil {
		logr.Error("import failed",
			zap.String("run_id", report.RunID),
			zap.Int("skipped", report.Skipped),
			zap.Error(err))
		os.Exit(1)
	}

	logr.Info("import complete",
		zap.String("run_id", report.RunID),
		zap.String("source", report.Source),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", report.Skipped))
}

func buildJob(dataset, url, file, regionType, parent string) (importer.Job, error) {
	switch dataset {
	case "countries":
		return importer.WorldCountriesJob(), nil
	case "us-states":
		return importer.USStatesJob(), nil
	case "":
		if url == "" && file == "" {
			return importer.Job{}, fmt.Errorf("either -dataset or one of -url/-file is required")
		}
		return importer.SubdivisionJob(url, file, regionType, parent), nil
	default:
		return importer.Job{}, fmt.Errorf("unknown dataset %q (want countries or us-states)", dataset)
	}
}
