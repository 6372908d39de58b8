package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "paper")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "paperdb")
}

func TestLoadWithoutAPIKeySucceeds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_SECRET_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.APISecretKey)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4242", cfg.HTTPPort)
	assert.Equal(t, "https://oaipmh.arxiv.org/oai", cfg.ArxivBaseURL)
	assert.Equal(t, []string{"arxiv"}, cfg.Datasources())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())

	cursor, err := cfg.CursorDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), cursor)
}

func TestDatasourcesTrimsAndDropsEmptyEntries(t *testing.T) {
	cfg := &Config{EnabledDatasources: "arxiv, pubmed,,"}
	assert.Equal(t, []string{"arxiv", "pubmed"}, cfg.Datasources())
}

func TestCursorDateRejectsGarbage(t *testing.T) {
	cfg := &Config{DefaultCursorDate: "gestern"}
	_, err := cfg.CursorDate()
	assert.Error(t, err)
}
