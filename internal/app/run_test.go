package app

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aqdash/internal/config"
	"aqdash/internal/migrate"
	"aqdash/internal/modules/airquality/repository"
	"aqdash/internal/modules/airquality/service"
)

const datasetCSV = `station,datetime,PM2.5,PM10
Jakarta,2017-03-01 00:00:00,12,20
Jakarta,2017-03-06 00:00:00,70,
`

func newTestService(t *testing.T) *service.Service {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Run(context.Background(), db, nil))
	return service.NewService(repository.NewRepository(db), nil, time.Second)
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pm25.csv")
	require.NoError(t, os.WriteFile(path, []byte(datasetCSV), 0o600))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartDataset_disabled(t *testing.T) {
	svc := newTestService(t)
	refresher, err := startDataset(context.Background(), config.Config{}, svc, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, refresher)

	_, err = svc.Stations(context.Background())
	require.NoError(t, err)
}

func TestStartDataset_importOnce(t *testing.T) {
	svc := newTestService(t)
	cfg := config.Config{DatasetPath: writeDataset(t), DatasetTimeout: time.Second}

	refresher, err := startDataset(context.Background(), cfg, svc, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, refresher)

	latest, err := svc.Latest(context.Background(), "Jakarta", 10)
	require.NoError(t, err)
	assert.Len(t, latest, 2)
}

func TestStartDataset_missingFileKeepsServing(t *testing.T) {
	svc := newTestService(t)
	cfg := config.Config{DatasetPath: filepath.Join(t.TempDir(), "missing.csv"), DatasetTimeout: time.Second}

	refresher, err := startDataset(context.Background(), cfg, svc, discardLogger())
	require.NoError(t, err)
	assert.Nil(t, refresher)
}

func TestStartDataset_scheduled(t *testing.T) {
	svc := newTestService(t)
	cfg := config.Config{
		DatasetPath:    writeDataset(t),
		DatasetRefresh: "0 3 * * *",
		DatasetTimeout: time.Second,
	}

	refresher, err := startDataset(context.Background(), cfg, svc, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, refresher)
	t.Cleanup(func() { refresher.Stop(context.Background()) })

	imports, err := svc.Imports(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, imports, 1)
}

func TestStartDataset_badSpec(t *testing.T) {
	svc := newTestService(t)
	cfg := config.Config{DatasetPath: writeDataset(t), DatasetRefresh: "not a spec"}

	_, err := startDataset(context.Background(), cfg, svc, discardLogger())
	require.Error(t, err)
}
