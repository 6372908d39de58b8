package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-harvest/datasources"
	"paper-harvest/models"
	"paper-harvest/repository"
)

// fakeIterator spielt vorbereitete Records ab und liefert danach optional
// einen Transportfehler.
type fakeIterator struct {
	records []datasources.PaperMetadataRecord
	err     error
}

func (it *fakeIterator) Next(ctx context.Context) (datasources.PaperMetadataRecord, bool, error) {
	if len(it.records) == 0 {
		if it.err != nil {
			err := it.err
			it.err = nil
			return datasources.PaperMetadataRecord{}, false, err
		}
		return datasources.PaperMetadataRecord{}, false, nil
	}
	record := it.records[0]
	it.records = it.records[1:]
	return record, true, nil
}

type fakeIngestion struct {
	records []datasources.PaperMetadataRecord
	err     error
}

func (f *fakeIngestion) Datasource() string { return "arxiv" }

func (f *fakeIngestion) DomainCode(subjectCode string) string {
	if idx := strings.Index(subjectCode, ":"); idx >= 0 {
		return subjectCode[:idx]
	}
	return subjectCode
}

func (f *fakeIngestion) Run(ctx context.Context, subjectCode string, from, until time.Time) datasources.RecordIterator {
	return &fakeIterator{records: f.records, err: f.err}
}

func testRecord() datasources.PaperMetadataRecord {
	return datasources.PaperMetadataRecord{
		Abstract:              "A study of meta-learning.",
		Authors:               []string{"Ada Lovelace", "Alan Turing"},
		DomainCode:            "cs",
		PaperID:               "2301.00001",
		PrimarySubjectCode:    "cs:cs.ai",
		PublishDate:           time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC),
		SecondarySubjectCodes: []string{"cs:cs.lg"},
		Source:                "arxiv",
		Title:                 "Learning to Learn",
	}
}

// seedTaxonomy legt Datasource, Domain "cs" und die Subjects cs.AI/cs.LG an.
func seedTaxonomy(t *testing.T, db *gorm.DB) *models.Datasource {
	t.Helper()
	ds := createTestDatasource(t, db, "arxiv")
	categories := NewCategoryIngestionService(db, zap.NewNop())

	lg := csAISubject()
	lg.Code = "cs:cs.lg"
	lg.Name = "Machine Learning"
	require.NoError(t, categories.IngestSubjectsBatch(context.Background(), ds.ID, []datasources.SubjectRecord{csAISubject(), lg}))
	return ds
}

func newPaperService(db *gorm.DB, fake *fakeIngestion) *PaperIngestionService {
	return NewPaperIngestionService(db, zap.NewNop(), map[datasources.Kind]datasources.PaperMetadataIngestion{
		datasources.KindArxiv: fake,
	})
}

func runWindow() (time.Time, time.Time) {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestPaperIngestionCreatesFullGraph(t *testing.T) {
	db := newTestDB(t)
	ds := seedTaxonomy(t, db)
	service := newPaperService(db, &fakeIngestion{records: []datasources.PaperMetadataRecord{testRecord()}})

	from, until := runWindow()
	count, err := service.Run(context.Background(), datasources.KindArxiv, "cs:cs.ai", from, until)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	paper, err := repository.PaperRepository{}.GetByPaperIdentifier(db, "2301.00001")
	require.NoError(t, err)
	require.NotNil(t, paper)
	assert.Equal(t, "Learning to Learn", paper.Title)
	assert.Equal(t, ds.ID, paper.DatasourceID)

	mainAuthor, err := repository.AuthorRepository{}.GetByName(db, "Ada Lovelace")
	require.NoError(t, err)
	require.NotNil(t, mainAuthor)
	assert.Equal(t, mainAuthor.ID, paper.MainAuthorID)

	assert.EqualValues(t, 2, countRows(t, db, &models.Author{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.PaperAuthor{}))

	subjects, err := repository.PaperRepository{}.GetSubjects(db, paper.ID)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	primaries := 0
	for _, row := range subjects {
		if row.IsPrimary {
			primaries++
		}
	}
	assert.Equal(t, 1, primaries)
}

func TestPaperIngestionIdempotentOnTitle(t *testing.T) {
	db := newTestDB(t)
	seedTaxonomy(t, db)
	service := newPaperService(db, &fakeIngestion{records: []datasources.PaperMetadataRecord{testRecord()}})

	from, until := runWindow()
	count, err := service.Run(context.Background(), datasources.KindArxiv, "cs:cs.ai", from, until)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Zweiter Lauf mit identischem Record legt nichts Neues an.
	service = newPaperService(db, &fakeIngestion{records: []datasources.PaperMetadataRecord{testRecord()}})
	count, err = service.Run(context.Background(), datasources.KindArxiv, "cs:cs.ai", from, until)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.EqualValues(t, 1, countRows(t, db, &models.Paper{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.PaperAuthor{}))
}

func TestPaperIngestionSkipsUnknownDomain(t *testing.T) {
	db := newTestDB(t)
	seedTaxonomy(t, db)

	record := testRecord()
	record.DomainCode = "bio"
	service := newPaperService(db, &fakeIngestion{records: []datasources.PaperMetadataRecord{record}})

	from, until := runWindow()
	count, err := service.Run(context.Background(), datasources.KindArxiv, "cs:cs.ai", from, until)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.EqualValues(t, 0, countRows(t, db, &models.Paper{}))
}

func TestPaperIngestionSkipsUnknownPrimarySubject(t *testing.T) {
	db := newTestDB(t)
	seedTaxonomy(t, db)

	record := testRecord()
	record.PrimarySubjectCode = "cs:cs.cv"
	service := newPaperService(db, &fakeIngestion{records: []datasources.PaperMetadataRecord{record}})

	from, until := runWindow()
	count, err := service.Run(context.Background(), datasources.KindArxiv, "cs:cs.ai", from, until)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.EqualValues(t, 0, countRows(t, db, &models.Paper{}))
}

func TestPaperIngestionMissingSecondaryIsBestEffort(t *testing.T) {
	db := newTestDB(t)
	seedTaxonomy(t, db)

	record := testRecord()
	record.SecondarySubjectCodes = []string{"cs:cs.lg", "cs:cs.cv"}
	service := newPaperService(db, &fakeIngestion{records: []datasources.PaperMetadataRecord{record}})

	from, until := runWindow()
	count, err := service.Run(context.Background(), datasources.KindArxiv, "cs:cs.ai", from, until)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Das unbekannte Sekundär-Subject fällt stillschweigend weg.
	paper, err := repository.PaperRepository{}.GetByPaperIdentifier(db, "2301.00001")
	require.NoError(t, err)
	subjects, err := repository.PaperRepository{}.GetSubjects(db, paper.ID)
	require.NoError(t, err)
	assert.Len(t, subjects, 2)
}

func TestPaperIngestionRequiresDatasourceRow(t *testing.T) {
	db := newTestDB(t)
	service := newPaperService(db, &fakeIngestion{records: []datasources.PaperMetadataRecord{testRecord()}})

	from, until := runWindow()
	_, err := service.Run(context.Background(), datasources.KindArxiv, "cs:cs.ai", from, until)
	assert.Error(t, err)
}

func TestPaperIngestionKeepsCommittedRecordsOnError(t *testing.T) {
	db := newTestDB(t)
	seedTaxonomy(t, db)

	service := newPaperService(db, &fakeIngestion{
		records: []datasources.PaperMetadataRecord{testRecord()},
		err:     assert.AnError,
	})

	from, until := runWindow()
	count, err := service.Run(context.Background(), datasources.KindArxiv, "cs:cs.ai", from, until)
	assert.Error(t, err)
	assert.Equal(t, 1, count)
	assert.EqualValues(t, 1, countRows(t, db, &models.Paper{}))
}
