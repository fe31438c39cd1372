package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/models"
	"github.com/uptrace/bun"
)

const defaultRegionType = "country"

type RegionService struct {
	db *bun.DB
}

func NewRegionService(db *bun.DB) *RegionService {
	return &RegionService{db: db}
}

// List returns regions matching the filter, in insertion order. An empty
// filter returns every region. No pagination: the globe front end consumes
// the full set.
func (s *RegionService) List(ctx context.Context, filter models.RegionFilter) ([]models.Region, error) {
	regions := make([]models.Region, 0)

	q := s.db.NewSelect().
		Model(&regions).
		Order("id ASC")

	if filter.RegionType != "" {
		q = q.Where("region_type = ?", filter.RegionType)
	}
	if filter.ParentID != nil {
		q = q.Where("parent_id = ?", *filter.ParentID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return regions, nil
}

// GetByID returns the region with the given id, or ErrRegionNotFound.
func (s *RegionService) GetByID(ctx context.Context, id int64) (*models.Region, error) {
	region := new(models.Region)

	err := s.db.NewSelect().
		Model(region).
		Where("r.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegionNotFound
	}
	if err != nil {
		return nil, err
	}
	return region, nil
}

// GetByCode returns the region with the given code, or ErrRegionNotFound.
// Codes are unique when present, so there is at most one match.
func (s *RegionService) GetByCode(ctx context.Context, code string) (*models.Region, error) {
	region := new(models.Region)

	err := s.db.NewSelect().
		Model(region).
		Where("r.code = ?", code).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegionNotFound
	}
	if err != nil {
		return nil, err
	}
	return region, nil
}

// Create inserts a new region and returns its assigned id.
func (s *RegionService) Create(ctx context.Context, in models.RegionInput) (int64, error) {
	if strings.TrimSpace(in.Name) == "" {
		return 0, ErrNameRequired
	}
	if err := s.checkCodeFree(ctx, in.Code, 0); err != nil {
		return 0, err
	}
	if err := s.checkParentExists(ctx, in.ParentID); err != nil {
		return 0, err
	}

	region := regionFromInput(in)
	if _, err := s.db.NewInsert().Model(region).Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert region: %w", err)
	}
	return region.ID, nil
}

// Update fully replaces the mutable fields of the identified region. Fields
// absent from the input are written as NULL; this is a deliberate
// full-replace contract, not a patch.
func (s *RegionService) Update(ctx context.Context, id int64, in models.RegionInput) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if err := s.checkCodeFree(ctx, in.Code, id); err != nil {
		return err
	}
	if err := s.checkParentExists(ctx, in.ParentID); err != nil {
		return err
	}
	if err := s.checkNoCycle(ctx, id, in.ParentID); err != nil {
		return err
	}

	region := regionFromInput(in)
	region.ID = id

	_, err := s.db.NewUpdate().
		Model(region).
		Column("name", "code", "parent_id", "region_type", "geojson_data", "custom_data", "owner").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update region: %w", err)
	}
	return nil
}

// Delete removes a region and, transitively, every descendant. The cascade is
// applied in a single transaction so readers never observe an orphaned child;
// it works identically on backends without foreign-key cascade enforcement.
func (s *RegionService) Delete(ctx context.Context, id int64) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		ids := []int64{id}
		frontier := []int64{id}

		for len(frontier) > 0 {
			var children []int64
			err := tx.NewSelect().
				Model((*models.Region)(nil)).
				Column("id").
				Where("parent_id IN (?)", bun.In(frontier)).
				Scan(ctx, &children)
			if err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		_, err := tx.NewDelete().
			Model((*models.Region)(nil)).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		return err
	})
}

// DeleteByType removes every region of one type. Used by imports that fully
// refresh a subdivision level before re-importing it.
func (s *RegionService) DeleteByType(ctx context.Context, regionType string) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*models.Region)(nil)).
		Where("region_type = ?", regionType).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertByCode inserts a region keyed by code, or replaces its name,
// parent_id, region_type, geojson_data and custom_data if the code already
// exists. Owner and created_at are left untouched on conflict. One statement,
// so the write is atomic per record on both backends.
func (s *RegionService) UpsertByCode(ctx context.Context, code string, in models.RegionInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if code == "" {
		return ErrDuplicateCode
	}

	region := regionFromInput(in)
	region.Code = &code

	_, err := s.db.NewInsert().
		Model(region).
		On("CONFLICT (code) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("parent_id = EXCLUDED.parent_id").
		Set("region_type = EXCLUDED.region_type").
		Set("geojson_data = EXCLUDED.geojson_data").
		Set("custom_data = EXCLUDED.custom_data").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert region %s: %w", code, err)
	}
	return nil
}

func regionFromInput(in models.RegionInput) *models.Region {
	regionType := in.RegionType
	if regionType == "" {
		regionType = defaultRegionType
	}
	return &models.Region{
		Name:        in.Name,
		Code:        in.Code,
		ParentID:    in.ParentID,
		RegionType:  regionType,
		GeoJSONData: in.GeoJSONData,
		CustomData:  in.CustomData,
		Owner:       in.Owner,
	}
}

// checkCodeFree reports ErrDuplicateCode when another region (id != selfID)
// already holds the code.
func (s *RegionService) checkCodeFree(ctx context.Context, code *string, selfID int64) error {
	if code == nil || *code == "" {
		return nil
	}

	existing, err := s.GetByCode(ctx, *code)
	if errors.Is(err, ErrRegionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return ErrDuplicateCode
	}
	return nil
}

func (s *RegionService) checkParentExists(ctx context.Context, parentID *int64) error {
	if parentID == nil {
		return nil
	}

	exists, err := s.db.NewSelect().
		Model((*models.Region)(nil)).
		Where("id = ?", *parentID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return ErrParentNotFound
	}
	return nil
}

// checkNoCycle walks the ancestor chain from the proposed parent. If the
// chain reaches the region being updated, the new parent would close a loop
// and cascade delete on the resulting graph would be undefined.
func (s *RegionService) checkNoCycle(ctx context.Context, id int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}

	current := *parentID
	for {
		if current == id {
			return ErrHierarchyCycle
		}

		var next *int64
		err := s.db.NewSelect().
			Model((*models.Region)(nil)).
			Column("parent_id").
			Where("id = ?", current).
			Scan(ctx, &next)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		current = *next
	}
}
