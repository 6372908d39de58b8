package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-harvest/datasources"
	"paper-harvest/models"
	"paper-harvest/repository"
)

// PaperIngestionService zieht kanonische Paper-Records aus einer Datasource
// und schreibt sie idempotent in die Datenbank. Jeder Record läuft in seiner
// eigenen Transaktion; ein fehlgeschlagener Record rollt bereits committete
// Papers desselben Laufs nicht zurück.
type PaperIngestionService struct {
	DB         *gorm.DB
	Logger     *zap.Logger
	Ingestions map[datasources.Kind]datasources.PaperMetadataIngestion

	datasourceRepo repository.DatasourceRepository
	domains        repository.DomainRepository
	subjects       repository.SubjectRepository
	authors        repository.AuthorRepository
	papers         repository.PaperRepository
}

// NewPaperIngestionService erstellt einen neuen PaperIngestionService. Die
// Ingestion-Map wird einmalig beim Prozessstart aufgebaut und danach nur
// gelesen.
func NewPaperIngestionService(db *gorm.DB, logger *zap.Logger, ingestions map[datasources.Kind]datasources.PaperMetadataIngestion) *PaperIngestionService {
	return &PaperIngestionService{DB: db, Logger: logger, Ingestions: ingestions}
}

// Run ingestiert alle Papers eines Subjects im Fenster [from, until] und gibt
// die Anzahl neu angelegter Papers zurück. Eine unbekannte Datasource ist ein
// fataler Vorbedingungsfehler: der Kategorie-Pfad muss sie zuvor angelegt
// haben.
func (s *PaperIngestionService) Run(ctx context.Context, kind datasources.Kind, subjectCode string, from, until time.Time) (int, error) {
	ingestion, ok := s.Ingestions[kind]
	if !ok {
		return 0, fmt.Errorf("keine ingestion für datasource %q registriert", kind)
	}

	log := s.Logger.With(
		zap.String("datasource", ingestion.Datasource()),
		zap.String("subject_code", subjectCode))

	datasourceID, err := s.datasourceRepo.GetUUIDByName(s.DB.WithContext(ctx), ingestion.Datasource())
	if err != nil {
		return 0, err
	}
	if datasourceID == uuid.Nil {
		return 0, fmt.Errorf("datasource %q ist nicht angelegt; kategorie-ingestion zuerst ausführen", ingestion.Datasource())
	}

	log.Info("Starte Paper-Ingestion.",
		zap.Time("from", from),
		zap.Time("until", until))

	iterator := ingestion.Run(ctx, subjectCode, from, until)
	count := 0
	for {
		record, ok, err := iterator.Next(ctx)
		if err != nil {
			log.Error("Abruf der Paper-Metadaten abgebrochen", zap.Error(err))
			return count, err
		}
		if !ok {
			break
		}

		paper, err := s.ingestOne(ctx, record, datasourceID)
		if err != nil {
			return count, err
		}
		if paper != nil {
			count++
		}
	}

	log.Info("Paper-Ingestion abgeschlossen", zap.Int("new_papers", count))
	return count, nil
}

// ingestOne schreibt einen einzelnen kanonischen Record in einer eigenen
// Transaktion. Fehlende Domain oder fehlendes Primär-Subject führen zum
// Verwerfen des Records (mit Log), nicht zum Abbruch des Laufs; ein Paper mit
// bereits bekanntem Titel ist ein No-Op. Rückgabe nil bedeutet: nichts
// angelegt.
func (s *PaperIngestionService) ingestOne(ctx context.Context, record datasources.PaperMetadataRecord, datasourceID uuid.UUID) (*models.Paper, error) {
	log := s.Logger.With(
		zap.String("source", record.Source),
		zap.String("paper_id", record.PaperID))

	var created *models.Paper
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		domain, err := s.domains.GetByCode(tx, record.DomainCode, datasourceID)
		if err != nil {
			return err
		}
		if domain == nil {
			log.Error("Domain für Paper nicht vorhanden, Record wird verworfen",
				zap.String("domain_code", record.DomainCode))
			return nil
		}

		primary, err := s.subjects.GetByCode(tx, record.PrimarySubjectCode)
		if err != nil {
			return err
		}
		if primary == nil {
			log.Error("Primär-Subject für Paper nicht vorhanden, Record wird verworfen",
				zap.String("subject_code", record.PrimarySubjectCode))
			return nil
		}

		// Sekundär-Subjects sind best effort; fehlende blockieren das Paper nicht.
		secondary, err := s.subjects.GetByCodes(tx, record.SecondarySubjectCodes)
		if err != nil {
			return err
		}
		if len(secondary) < len(record.SecondarySubjectCodes) {
			log.Warn("Nicht alle Sekundär-Subjects vorhanden",
				zap.Int("requested", len(record.SecondarySubjectCodes)),
				zap.Int("found", len(secondary)))
		}

		authors, err := s.getOrCreateAuthors(tx, record.Authors)
		if err != nil {
			return err
		}
		if len(authors) == 0 {
			log.Error("Record ohne Autoren wird verworfen")
			return nil
		}

		existing, err := s.papers.GetByTitle(tx, record.Title)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Debug("Paper mit identischem Titel bereits vorhanden, wird übersprungen",
				zap.String("title", record.Title))
			return nil
		}

		paper := &models.Paper{
			DatasourceID:    datasourceID,
			DomainID:        domain.ID,
			MainAuthorID:    authors[0].ID,
			Title:           record.Title,
			Abstract:        record.Abstract,
			PaperIdentifier: record.PaperID,
			PublishDate:     record.PublishDate,
		}
		paper, createdNew, err := s.papers.Create(tx, paper)
		if err != nil {
			return err
		}
		if !createdNew {
			log.Warn("Paper wurde von parallelem Lauf angelegt, wird übersprungen")
			return nil
		}

		if err := s.papers.AddSubjects(tx, paperSubjectRows(paper.ID, primary.ID, secondary)); err != nil {
			return err
		}
		if err := s.papers.AddAuthors(tx, paperAuthorRows(paper.ID, authors)); err != nil {
			return err
		}

		created = paper
		return nil
	})
	return created, err
}

// getOrCreateAuthors löst alle Autorennamen mit einer Abfrage auf und legt
// fehlende Autoren an. Die Eingabe-Reihenfolge bleibt erhalten; der erste
// Autor der Liste ist der Hauptautor.
func (s *PaperIngestionService) getOrCreateAuthors(tx *gorm.DB, names []string) ([]*models.Author, error) {
	unique := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		unique = append(unique, name)
	}

	existing, err := s.authors.GetByNames(tx, unique)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*models.Author, len(existing))
	for i := range existing {
		byName[existing[i].Name] = &existing[i]
	}

	authors := make([]*models.Author, 0, len(unique))
	for _, name := range unique {
		author, ok := byName[name]
		if !ok {
			author, _, err = s.authors.Create(tx, &models.Author{Name: name})
			if err != nil {
				return nil, err
			}
		}
		authors = append(authors, author)
	}
	return authors, nil
}

// paperSubjectRows baut die Verknüpfungszeilen: eine Primär-Zeile plus eine
// Zeile pro gefundenem Sekundär-Subject (dedupliziert gegen das Primär-Subject).
func paperSubjectRows(paperID, primaryID uuid.UUID, secondary []models.Subject) []models.PaperSubject {
	rows := []models.PaperSubject{{PaperID: paperID, SubjectID: primaryID, IsPrimary: true}}
	seen := map[uuid.UUID]bool{primaryID: true}
	for _, subject := range secondary {
		if seen[subject.ID] {
			continue
		}
		seen[subject.ID] = true
		rows = append(rows, models.PaperSubject{PaperID: paperID, SubjectID: subject.ID})
	}
	return rows
}

func paperAuthorRows(paperID uuid.UUID, authors []*models.Author) []models.PaperAuthor {
	rows := make([]models.PaperAuthor, 0, len(authors))
	for _, author := range authors {
		rows = append(rows, models.PaperAuthor{PaperID: paperID, AuthorID: author.ID})
	}
	return rows
}
