// Package datasources definiert das datasource-agnostische Schema und die
// Interfaces, die jede angebundene Quelle (z.B. arXiv) implementieren muss.
package datasources

import (
	"context"
	"fmt"
	"time"
)

// Kind identifiziert eine unterstützte Datasource. Die Menge ist geschlossen;
// neue Quellen werden über einen neuen Konstanten-Eintrag plus Verdrahtung in
// main.go ergänzt.
type Kind string

const (
	// KindArxiv ist die arXiv OAI-PMH Schnittstelle.
	KindArxiv Kind = "arxiv"
)

// ParseKind wandelt einen Konfigurations-String in einen bekannten Kind um.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindArxiv:
		return KindArxiv, nil
	}
	return "", fmt.Errorf("unbekannte datasource %q", s)
}

// DomainRecord beschreibt einen Top-Level-Zweig der Taxonomie einer Quelle.
type DomainRecord struct {
	Code string
	Name string
}

// SubjectRecord beschreibt einen Blatt-Knoten der Taxonomie inklusive der
// eingebetteten Domain.
type SubjectRecord struct {
	Code   string
	Name   string
	Domain DomainRecord
}

// PaperMetadataRecord ist die kanonische, quellen-unabhängige Darstellung
// eines Paper-Records, wie sie der Normalizer erzeugt und der Orchestrator
// konsumiert.
type PaperMetadataRecord struct {
	Abstract              string
	Authors               []string
	DomainCode            string
	PaperID               string
	PrimarySubjectCode    string
	PublishDate           time.Time
	SecondarySubjectCodes []string
	Source                string
	Title                 string
}

// CategoryFetcher holt die komplette Domain/Subject-Taxonomie einer Quelle in
// einem Durchlauf. Ein Transportfehler bricht den gesamten Abruf ab.
type CategoryFetcher interface {
	// Datasource gibt den eindeutigen Namen der Quelle zurück (z.B. "arxiv").
	Datasource() string

	// FetchSubjects liefert alle Subjects der Quelle, jeweils mit Domain.
	FetchSubjects(ctx context.Context) ([]SubjectRecord, error)
}

// RecordIterator liefert kanonische Paper-Records pull-basiert. Seiten werden
// erst beim Aufruf von Next nachgeladen; ein Transportfehler beendet die
// Iteration endgültig.
type RecordIterator interface {
	// Next gibt den nächsten Record zurück. ok ist false, wenn die letzte
	// Seite (keine Fortsetzungs-Token mehr) vollständig konsumiert wurde.
	Next(ctx context.Context) (record PaperMetadataRecord, ok bool, err error)
}

// PaperMetadataIngestion kapselt Fetcher, Parser und Normalizer einer Quelle
// zu einem Strom kanonischer Records für ein (Subject, Datumsfenster).
type PaperMetadataIngestion interface {
	// Datasource gibt den eindeutigen Namen der Quelle zurück.
	Datasource() string

	// DomainCode leitet den Domain-Code aus einem Subject-Code ab.
	DomainCode(subjectCode string) string

	// Run startet einen paginierten Abruf für das Subject im Fenster [from, until].
	Run(ctx context.Context, subjectCode string, from, until time.Time) RecordIterator
}

// PageArchiver sichert rohe Antwortseiten, bevor sie geparst werden. Eine
// nil-Implementierung deaktiviert die Archivierung; Fehler beim Archivieren
// dürfen den Abruf nicht abbrechen.
type PageArchiver interface {
	ArchivePage(ctx context.Context, datasource, subjectCode string, page int, body []byte) error
}
