package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-harvest/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Datasource{},
		&models.Domain{},
		&models.Subject{},
		&models.Author{},
		&models.Paper{},
		&models.IngestionState{},
	))
	return db
}

func TestDatasourceCreateRecoversFromDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := DatasourceRepository{}

	first, created, err := repo.Create(db, &models.Datasource{Name: "arxiv"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.Create(db, &models.Datasource{Name: "arxiv"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestDomainCreateRecoversFromDuplicate(t *testing.T) {
	db := newTestDB(t)
	ds, _, err := DatasourceRepository{}.Create(db, &models.Datasource{Name: "arxiv"})
	require.NoError(t, err)
	repo := DomainRepository{}

	first, created, err := repo.Create(db, &models.Domain{Code: "cs", Name: "Computer Science", DatasourceID: ds.ID})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.Create(db, &models.Domain{Code: "cs", Name: "Anders", DatasourceID: ds.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Computer Science", second.Name)
}

func TestDomainCodeIsScopedToDatasource(t *testing.T) {
	db := newTestDB(t)
	arxiv, _, err := DatasourceRepository{}.Create(db, &models.Datasource{Name: "arxiv"})
	require.NoError(t, err)
	other, _, err := DatasourceRepository{}.Create(db, &models.Datasource{Name: "other"})
	require.NoError(t, err)
	repo := DomainRepository{}

	_, created, err := repo.Create(db, &models.Domain{Code: "cs", Name: "Computer Science", DatasourceID: arxiv.ID})
	require.NoError(t, err)
	assert.True(t, created)

	// Gleicher Code unter anderer Datasource ist eine eigene Zeile.
	_, created, err = repo.Create(db, &models.Domain{Code: "cs", Name: "Computer Science", DatasourceID: other.ID})
	require.NoError(t, err)
	assert.True(t, created)

	domain, err := repo.GetByCode(db, "cs", arxiv.ID)
	require.NoError(t, err)
	require.NotNil(t, domain)
	assert.Equal(t, arxiv.ID, domain.DatasourceID)
}

func TestGetUUIDByNameMissingReturnsNil(t *testing.T) {
	db := newTestDB(t)

	id, err := DatasourceRepository{}.GetUUIDByName(db, "arxiv")
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)
}

func TestPaperCreateRecoversOnIdentifier(t *testing.T) {
	db := newTestDB(t)
	ds, _, err := DatasourceRepository{}.Create(db, &models.Datasource{Name: "arxiv"})
	require.NoError(t, err)
	domain, _, err := DomainRepository{}.Create(db, &models.Domain{Code: "cs", Name: "CS", DatasourceID: ds.ID})
	require.NoError(t, err)
	author, _, err := AuthorRepository{}.Create(db, &models.Author{Name: "Ada Lovelace"})
	require.NoError(t, err)
	repo := PaperRepository{}

	paper := func(title string) *models.Paper {
		return &models.Paper{
			DatasourceID:    ds.ID,
			DomainID:        domain.ID,
			MainAuthorID:    author.ID,
			Title:           title,
			PaperIdentifier: "2301.00001",
			PublishDate:     time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC),
		}
	}

	first, created, err := repo.Create(db, paper("Learning to Learn"))
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repo.Create(db, paper("Anderer Titel"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestAuthorGetByNames(t *testing.T) {
	db := newTestDB(t)
	repo := AuthorRepository{}

	_, _, err := repo.Create(db, &models.Author{Name: "Ada Lovelace"})
	require.NoError(t, err)
	_, _, err = repo.Create(db, &models.Author{Name: "Alan Turing"})
	require.NoError(t, err)

	authors, err := repo.GetByNames(db, []string{"Ada Lovelace", "Grace Hopper"})
	require.NoError(t, err)
	require.Len(t, authors, 1)
	assert.Equal(t, "Ada Lovelace", authors[0].Name)

	authors, err = repo.GetByNames(db, nil)
	require.NoError(t, err)
	assert.Empty(t, authors)
}

func TestPaperCountByDatasource(t *testing.T) {
	db := newTestDB(t)
	arxiv, _, err := DatasourceRepository{}.Create(db, &models.Datasource{Name: "arxiv"})
	require.NoError(t, err)
	other, _, err := DatasourceRepository{}.Create(db, &models.Datasource{Name: "other"})
	require.NoError(t, err)
	domain, _, err := DomainRepository{}.Create(db, &models.Domain{Code: "cs", Name: "CS", DatasourceID: arxiv.ID})
	require.NoError(t, err)
	author, _, err := AuthorRepository{}.Create(db, &models.Author{Name: "Ada Lovelace"})
	require.NoError(t, err)
	repo := PaperRepository{}

	_, _, err = repo.Create(db, &models.Paper{
		DatasourceID:    arxiv.ID,
		DomainID:        domain.ID,
		MainAuthorID:    author.ID,
		Title:           "Learning to Learn",
		PaperIdentifier: "2301.00001",
		PublishDate:     time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	count, err := repo.CountByDatasource(db, arxiv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = repo.CountByDatasource(db, other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestIngestionStateAdvanceCursorOnlyForward(t *testing.T) {
	db := newTestDB(t)
	ds, _, err := DatasourceRepository{}.Create(db, &models.Datasource{Name: "arxiv"})
	require.NoError(t, err)
	domain, _, err := DomainRepository{}.Create(db, &models.Domain{Code: "cs", Name: "CS", DatasourceID: ds.ID})
	require.NoError(t, err)
	repo := IngestionStateRepository{}

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	state, created, err := repo.Create(db, &models.IngestionState{
		DatasourceID: ds.ID,
		DomainID:     domain.ID,
		CursorDate:   start,
	})
	require.NoError(t, err)
	assert.True(t, created)

	forward := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AdvanceCursor(db, state.ID, forward))
	require.NoError(t, repo.AdvanceCursor(db, state.ID, start))

	reloaded, err := repo.GetByDatasourceDomain(db, ds.ID, domain.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, forward, reloaded.CursorDate.UTC())
}
