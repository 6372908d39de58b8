package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-harvest/datasources"
	"paper-harvest/models"
	"paper-harvest/repository"
)

// HarvestService orchestriert die beiden Ingestion-Pfade. Der Kategorie-Pfad
// zieht die Taxonomie einer Datasource und legt fehlende Ingestion-States an;
// der Paper-Pfad arbeitet alle aktivierten States inkrementell ab und schiebt
// deren Cursor nach erfolgreichem Durchlauf vor.
type HarvestService struct {
	DB     *gorm.DB
	Logger *zap.Logger

	CategoryFetchers map[datasources.Kind]datasources.CategoryFetcher
	Categories       *CategoryIngestionService
	Papers           *PaperIngestionService
	States           *IngestionStateService

	// DefaultCursor ist der Start-Cursor neu angelegter Ingestion-States.
	DefaultCursor time.Time

	datasourceRepo repository.DatasourceRepository
	domains        repository.DomainRepository
	subjects       repository.SubjectRepository
	papers         repository.PaperRepository
}

// NewHarvestService erstellt einen neuen HarvestService.
func NewHarvestService(
	db *gorm.DB,
	logger *zap.Logger,
	fetchers map[datasources.Kind]datasources.CategoryFetcher,
	categories *CategoryIngestionService,
	papers *PaperIngestionService,
	states *IngestionStateService,
	defaultCursor time.Time,
) *HarvestService {
	return &HarvestService{
		DB:               db,
		Logger:           logger,
		CategoryFetchers: fetchers,
		Categories:       categories,
		Papers:           papers,
		States:           states,
		DefaultCursor:    defaultCursor,
	}
}

// RunCategories führt den Kategorie-Pfad für eine Datasource aus: Datasource-
// Zeile sicherstellen, Taxonomie abrufen, Subjects idempotent ingestieren und
// für jede Domain einen Ingestion-State anlegen.
func (s *HarvestService) RunCategories(ctx context.Context, kind datasources.Kind) error {
	fetcher, ok := s.CategoryFetchers[kind]
	if !ok {
		return fmt.Errorf("kein category-fetcher für datasource %q registriert", kind)
	}
	log := s.Logger.With(zap.String("datasource", fetcher.Datasource()))

	ds, created, err := s.datasourceRepo.Create(s.DB.WithContext(ctx), &models.Datasource{Name: fetcher.Datasource()})
	if err != nil {
		return err
	}
	if created {
		log.Info("Datasource angelegt", zap.String("datasource_id", ds.ID.String()))
	}

	subjects, err := fetcher.FetchSubjects(ctx)
	if err != nil {
		return err
	}
	log.Info("Taxonomie abgerufen", zap.Int("subjects", len(subjects)))

	if err := s.Categories.IngestSubjectsBatch(ctx, ds.ID, subjects); err != nil {
		return err
	}
	return s.States.EnsureDomainStates(ctx, fetcher.Datasource(), s.DefaultCursor)
}

// RunPapers arbeitet alle aktivierten Ingestion-States einer Datasource ab
// und gibt die Anzahl neu angelegter Papers zurück. Pro State werden alle
// Subjects der Domain vom Cursor bis jetzt geerntet; erst nach einem
// vollständigen Durchlauf ohne Fehler wird der Cursor auf den Startzeitpunkt
// des Laufs vorgeschoben. Ein Transportfehler bricht den Lauf der Datasource
// ab, bereits committete Papers bleiben erhalten.
func (s *HarvestService) RunPapers(ctx context.Context, kind datasources.Kind) (int, error) {
	ingestion, ok := s.Papers.Ingestions[kind]
	if !ok {
		return 0, fmt.Errorf("keine ingestion für datasource %q registriert", kind)
	}
	log := s.Logger.With(zap.String("datasource", ingestion.Datasource()))

	states, err := s.States.ActiveStates(ctx, ingestion.Datasource())
	if err != nil {
		return 0, err
	}
	if len(states) == 0 {
		log.Info("Keine aktiven Ingestion-States, nichts zu tun.")
		return 0, nil
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	total := 0
	for _, state := range states {
		count, err := s.harvestState(ctx, kind, state, now, log)
		total += count
		if err != nil {
			return total, err
		}
	}

	stock, err := s.papers.CountByDatasource(s.DB.WithContext(ctx), states[0].DatasourceID)
	if err != nil {
		return total, err
	}
	log.Info("Paper-Pfad abgeschlossen",
		zap.Int("new_papers", total),
		zap.Int64("papers_total", stock))
	return total, nil
}

// harvestState erntet alle Subjects der Domain eines States im Fenster
// [cursor, until] und schiebt danach den Cursor vor.
func (s *HarvestService) harvestState(ctx context.Context, kind datasources.Kind, state models.IngestionState, until time.Time, log *zap.Logger) (int, error) {
	tx := s.DB.WithContext(ctx)
	domain, err := s.domains.GetByID(tx, state.DomainID)
	if err != nil {
		return 0, err
	}
	if domain == nil {
		log.Error("Ingestion-State verweist auf gelöschte Domain, wird übersprungen",
			zap.Uint("state_id", state.ID))
		return 0, nil
	}

	subjects, err := s.subjects.GetByDomain(tx, domain.ID)
	if err != nil {
		return 0, err
	}

	stateLog := log.With(
		zap.String("domain_code", domain.Code),
		zap.Time("cursor", state.CursorDate),
		zap.Time("until", until))
	stateLog.Info("Ernte Domain", zap.Int("subjects", len(subjects)))

	total := 0
	for _, subject := range subjects {
		count, err := s.Papers.Run(ctx, kind, subject.Code, state.CursorDate, until)
		total += count
		if err != nil {
			return total, err
		}
	}

	if err := s.States.AdvanceCursor(ctx, state.ID, until); err != nil {
		return total, err
	}
	stateLog.Info("Domain geerntet", zap.Int("new_papers", total))
	return total, nil
}

// RunAll führt beide Pfade für alle registrierten Datasources aus und gibt
// die Gesamtzahl neu angelegter Papers zurück. Gedacht für den Cron-Einstieg:
// Fehler einer Datasource werden geloggt, die übrigen Datasources laufen
// weiter.
func (s *HarvestService) RunAll(ctx context.Context) int {
	total := 0
	for kind := range s.CategoryFetchers {
		if err := s.RunCategories(ctx, kind); err != nil {
			s.Logger.Error("Kategorie-Ingestion fehlgeschlagen",
				zap.String("datasource", string(kind)),
				zap.Error(err))
			continue
		}
		count, err := s.RunPapers(ctx, kind)
		total += count
		if err != nil {
			s.Logger.Error("Paper-Ingestion fehlgeschlagen",
				zap.String("datasource", string(kind)),
				zap.Error(err))
		}
	}
	return total
}
