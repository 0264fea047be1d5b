package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/tg_landing/internal/models"
	pkgdb "github.com/Skotchmaster/tg_landing/pkg/db"
)

// NewDB returns a migrated in-memory sqlite database closed at test cleanup.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := pkgdb.OpenSQLite(context.Background(), "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.Tables()...))

	t.Cleanup(func() { _ = pkgdb.Close(db) })
	return db
}
