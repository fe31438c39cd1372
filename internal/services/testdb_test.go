package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/codewarden1018/ThreeJSWorldMap/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// newTestDB opens an isolated in-memory SQLite database with the regions
// schema applied.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = db.NewCreateTable().
		Model((*models.Region)(nil)).
		IfNotExists().
		ForeignKey(`("parent_id") REFERENCES "regions" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	require.NoError(t, err)

	return db
}

func strptr(s string) *string { return &s }

func int64ptr(v int64) *int64 { return &v }
