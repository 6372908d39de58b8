package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-harvest/models"
	"paper-harvest/repository"
)

// newTestDB öffnet eine private In-Memory-Datenbank pro Test und migriert das
// komplette Schema.
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
		&models.PaperSubject{},
		&models.PaperAuthor{},
		&models.IngestionState{},
	))
	return db
}

func createTestDatasource(t *testing.T, db *gorm.DB, name string) *models.Datasource {
	t.Helper()
	ds, _, err := repository.DatasourceRepository{}.Create(db, &models.Datasource{Name: name})
	require.NoError(t, err)
	return ds
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}
