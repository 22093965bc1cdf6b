package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-coinwallet/app/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := database.Open(ctx, database.Options{Driver: database.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))
	return db
}

func strPtr(v string) *string {
	return &v
}
