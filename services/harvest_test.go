package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-harvest/datasources"
	"paper-harvest/models"
)

type fakeFetcher struct {
	subjects []datasources.SubjectRecord
	err      error
}

func (f *fakeFetcher) Datasource() string { return "arxiv" }

func (f *fakeFetcher) FetchSubjects(ctx context.Context) ([]datasources.SubjectRecord, error) {
	return f.subjects, f.err
}

func newHarvestService(db *gorm.DB, fetcher *fakeFetcher, ingestion *fakeIngestion) *HarvestService {
	logger := zap.NewNop()
	papers := NewPaperIngestionService(db, logger, map[datasources.Kind]datasources.PaperMetadataIngestion{
		datasources.KindArxiv: ingestion,
	})
	return NewHarvestService(
		db,
		logger,
		map[datasources.Kind]datasources.CategoryFetcher{datasources.KindArxiv: fetcher},
		NewCategoryIngestionService(db, logger),
		papers,
		NewIngestionStateService(db, logger),
		defaultCursor(),
	)
}

func TestRunCategoriesBuildsTaxonomyAndStates(t *testing.T) {
	db := newTestDB(t)
	lg := csAISubject()
	lg.Code = "cs:cs.lg"
	lg.Name = "Machine Learning"
	fetcher := &fakeFetcher{subjects: []datasources.SubjectRecord{csAISubject(), lg}}
	service := newHarvestService(db, fetcher, &fakeIngestion{})

	require.NoError(t, service.RunCategories(context.Background(), datasources.KindArxiv))

	assert.EqualValues(t, 1, countRows(t, db, &models.Datasource{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.Domain{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.Subject{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.IngestionState{}))

	// Wiederholter Lauf bleibt idempotent.
	require.NoError(t, service.RunCategories(context.Background(), datasources.KindArxiv))
	assert.EqualValues(t, 1, countRows(t, db, &models.Datasource{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.Subject{}))
	assert.EqualValues(t, 1, countRows(t, db, &models.IngestionState{}))
}

func TestRunCategoriesUnknownKindFails(t *testing.T) {
	db := newTestDB(t)
	service := newHarvestService(db, &fakeFetcher{}, &fakeIngestion{})
	service.CategoryFetchers = map[datasources.Kind]datasources.CategoryFetcher{}

	assert.Error(t, service.RunCategories(context.Background(), datasources.KindArxiv))
}

func TestRunPapersHarvestsActiveStatesAndAdvancesCursor(t *testing.T) {
	db := newTestDB(t)
	lg := csAISubject()
	lg.Code = "cs:cs.lg"
	lg.Name = "Machine Learning"
	fetcher := &fakeFetcher{subjects: []datasources.SubjectRecord{csAISubject(), lg}}
	ingestion := &fakeIngestion{records: []datasources.PaperMetadataRecord{testRecord()}}
	service := newHarvestService(db, fetcher, ingestion)

	require.NoError(t, service.RunCategories(context.Background(), datasources.KindArxiv))

	states, err := service.States.List(context.Background(), "arxiv")
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.NoError(t, service.States.SetActive(context.Background(), states[0].ID, true))

	count, err := service.RunPapers(context.Background(), datasources.KindArxiv)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Beide Subjects liefern denselben Record; die Titel-Deduplizierung lässt
	// genau ein Paper übrig.
	assert.EqualValues(t, 1, countRows(t, db, &models.Paper{}))

	states, err = service.States.List(context.Background(), "arxiv")
	require.NoError(t, err)
	assert.True(t, states[0].CursorDate.After(defaultCursor()))
}

func TestRunPapersSkipsInactiveStates(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{subjects: []datasources.SubjectRecord{csAISubject()}}
	ingestion := &fakeIngestion{records: []datasources.PaperMetadataRecord{testRecord()}}
	service := newHarvestService(db, fetcher, ingestion)

	require.NoError(t, service.RunCategories(context.Background(), datasources.KindArxiv))
	count, err := service.RunPapers(context.Background(), datasources.KindArxiv)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.EqualValues(t, 0, countRows(t, db, &models.Paper{}))
}

func TestRunPapersAbortsOnTransportErrorWithoutAdvancingCursor(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{subjects: []datasources.SubjectRecord{csAISubject()}}
	ingestion := &fakeIngestion{err: assert.AnError}
	service := newHarvestService(db, fetcher, ingestion)

	require.NoError(t, service.RunCategories(context.Background(), datasources.KindArxiv))
	states, err := service.States.List(context.Background(), "arxiv")
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.NoError(t, service.States.SetActive(context.Background(), states[0].ID, true))

	_, err = service.RunPapers(context.Background(), datasources.KindArxiv)
	assert.Error(t, err)

	states, err = service.States.List(context.Background(), "arxiv")
	require.NoError(t, err)
	assert.Equal(t, defaultCursor(), states[0].CursorDate.UTC())
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	db := newTestDB(t)
	fetcher := &fakeFetcher{err: assert.AnError}
	service := newHarvestService(db, fetcher, &fakeIngestion{})

	// Fehler werden geloggt, nicht propagiert. Die Datasource-Zeile entsteht
	// vor dem fehlschlagenden Taxonomie-Abruf, Subjects aber nicht.
	count := service.RunAll(context.Background())
	assert.Equal(t, 0, count)
	assert.EqualValues(t, 1, countRows(t, db, &models.Datasource{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.Subject{}))
}
