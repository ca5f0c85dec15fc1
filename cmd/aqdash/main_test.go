package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const fixtureCSV = `station,datetime,PM2.5,PM10
Jakarta,2017-03-01 00:00:00,12,20
Jakarta,2017-03-06 00:00:00,70,
Jakarta,2017-03-12 00:00:00,200,
Jakarta,not-a-date,5,
`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "aqdash.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DB_LOG_SQL", "false")
	t.Setenv("MQTT_ENABLED", "false")
	t.Setenv("DATASET_REFRESH", "")
	cfgFile = ""
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func TestImportCalendarExport(t *testing.T) {
	dir := setupEnv(t)
	csvPath := filepath.Join(dir, "pm25.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(fixtureCSV), 0o600))

	out, err := execute(t, "import", "--quiet", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3 readings")
	assert.Contains(t, out, "1 rows skipped")

	out, err = execute(t, "calendar", "--station", "Jakarta", "--year", "2017", "--month", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Jakarta")
	assert.Contains(t, out, "W09")
	assert.Contains(t, out, "W10")

	out, err = execute(t, "calendar", "--recent")
	require.NoError(t, err)
	assert.Contains(t, out, "PM2.5 2017-03")

	xlsx := filepath.Join(dir, "march.xlsx")
	out, err = execute(t, "export", "--station", "Jakarta", "-o", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+xlsx+" (3 readings)")

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Jakarta", v)
}

func TestCalendar_Errors(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "calendar", "--month", "13")
	assert.ErrorContains(t, err, "invalid --month")

	_, err = execute(t, "calendar")
	assert.ErrorContains(t, err, "no stations loaded")
}

func TestImport_MissingFile(t *testing.T) {
	dir := setupEnv(t)

	_, err := execute(t, "import", "--quiet", filepath.Join(dir, "missing.csv"))
	assert.ErrorContains(t, err, "open dataset")
}

func TestMigrateStatus(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending migration")

	out, err = execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied")

	out, err = execute(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Equal(t, "database is up to date", strings.TrimSpace(out))
}

func TestVersion(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "aqdash dev", strings.TrimSpace(out))
}

func TestConfigError(t *testing.T) {
	setupEnv(t)
	t.Setenv("APP_ENV", "staging")

	_, err := execute(t, "version")
	assert.ErrorContains(t, err, "config error")
}
