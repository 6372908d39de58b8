package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"paper-harvest/datasources"
)

// CategoryFetcher holt die komplette arXiv-Taxonomie über verb=ListSets.
type CategoryFetcher struct {
	Client  *http.Client
	BaseURL string
	Logger  *zap.Logger
}

// NewCategoryFetcher erstellt einen neuen Kategorie-Fetcher für arXiv.
func NewCategoryFetcher(client *http.Client, baseURL string, logger *zap.Logger) *CategoryFetcher {
	return &CategoryFetcher{Client: client, BaseURL: baseURL, Logger: logger}
}

// Datasource gibt den Namen der Quelle zurück.
func (f *CategoryFetcher) Datasource() string {
	return DatasourceName
}

// FetchSubjects liefert alle Subjects von arXiv, jeweils mit aufgelöster
// Domain. Der Feed listet Domains vor ihren Subjects; ein Subject, dessen
// Domain noch nicht beobachtet wurde, wird mit Warnung verworfen.
func (f *CategoryFetcher) FetchSubjects(ctx context.Context) ([]datasources.SubjectRecord, error) {
	f.Logger.Info("Hole Kategorien von arXiv.")

	body, err := f.get(ctx, url.Values{"verb": {"ListSets"}})
	if err != nil {
		return nil, err
	}

	var doc listSetsResponse
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("listsets-antwort nicht dekodierbar: %w", err)
	}

	domains := make(map[string]datasources.DomainRecord)
	var subjects []datasources.SubjectRecord

	for _, set := range doc.Sets {
		spec := strings.ToLower(strings.TrimSpace(set.Spec))
		if spec == "" {
			continue
		}

		if !strings.Contains(spec, ":") {
			domains[spec] = datasources.DomainRecord{Code: spec, Name: set.Name}
			continue
		}

		domainCode := spec[:strings.Index(spec, ":")]
		domain, ok := domains[domainCode]
		if !ok {
			f.Logger.Warn("Subject mit unbekannter Domain wird übersprungen",
				zap.String("domain_code", domainCode),
				zap.String("subject_code", spec),
				zap.String("subject_name", set.Name))
			continue
		}
		subjects = append(subjects, datasources.SubjectRecord{Code: spec, Name: set.Name, Domain: domain})
	}

	f.Logger.Info("arXiv-Kategorien geholt",
		zap.Int("domains", len(domains)),
		zap.Int("subjects", len(subjects)))
	return subjects, nil
}

func (f *CategoryFetcher) get(ctx context.Context, params url.Values) ([]byte, error) {
	return doGet(ctx, f.Client, f.BaseURL, params)
}

// Ingestion bündelt Fetcher, Parser und Normalizer für arXiv-Paper-Metadaten.
type Ingestion struct {
	fetcher    *paperFetcher
	normalizer Normalizer
}

// NewIngestion erstellt eine neue arXiv-Paper-Ingestion. archiver darf nil
// sein; dann werden rohe Antwortseiten nicht gesichert.
func NewIngestion(client *http.Client, baseURL string, archiver datasources.PageArchiver, logger *zap.Logger) *Ingestion {
	return &Ingestion{
		fetcher: &paperFetcher{
			client:   client,
			baseURL:  baseURL,
			parser:   NewParser(logger),
			archiver: archiver,
			logger:   logger,
		},
	}
}

// Datasource gibt den Namen der Quelle zurück.
func (i *Ingestion) Datasource() string {
	return DatasourceName
}

// DomainCode leitet den Domain-Code aus einem Subject-Code ab
// ("physics:hep-th" gehört zu "physics", "cs" zu sich selbst).
func (i *Ingestion) DomainCode(subjectCode string) string {
	if idx := strings.Index(subjectCode, ":"); idx >= 0 {
		return subjectCode[:idx]
	}
	return subjectCode
}

// Run startet einen paginierten Abruf; Seiten werden lazy beim Iterieren
// geholt und jeder native Record direkt normalisiert.
func (i *Ingestion) Run(ctx context.Context, subjectCode string, from, until time.Time) datasources.RecordIterator {
	return &recordIterator{
		fetcher:     i.fetcher,
		normalizer:  i.normalizer,
		subjectCode: subjectCode,
		domainCode:  i.DomainCode(subjectCode),
		from:        from,
		until:       until,
	}
}

// paperFetcher führt die eigentlichen ListRecords-Anfragen aus.
type paperFetcher struct {
	client   *http.Client
	baseURL  string
	parser   *Parser
	archiver datasources.PageArchiver
	logger   *zap.Logger
}

// fetchPage holt genau eine Antwortseite. Die erste Seite trägt das volle
// Abfragefenster, Folgeseiten ausschließlich das Fortsetzungs-Token (der
// Paginierungszustand liegt vollständig serverseitig).
func (f *paperFetcher) fetchPage(ctx context.Context, subjectCode, domainCode string, from, until time.Time, token string, page int) ([]PaperRecord, string, error) {
	params := url.Values{"verb": {"ListRecords"}}
	if token != "" {
		params.Set("resumptionToken", token)
	} else {
		params.Set("metadataPrefix", "oai_dc")
		params.Set("from", from.Format("2006-01-02"))
		params.Set("until", until.Format("2006-01-02"))
		params.Set("set", subjectCode)
	}

	body, err := doGet(ctx, f.client, f.baseURL, params)
	if err != nil {
		return nil, "", err
	}

	if f.archiver != nil {
		if aerr := f.archiver.ArchivePage(ctx, DatasourceName, subjectCode, page, body); aerr != nil {
			f.logger.Warn("Archivierung der Antwortseite fehlgeschlagen",
				zap.String("subject", subjectCode),
				zap.Int("page", page),
				zap.Error(aerr))
		}
	}

	nextToken := f.parser.ResumptionToken(body)
	records := f.parser.Parse(body, subjectCode, domainCode)
	return records, nextToken, nil
}

// recordIterator implementiert datasources.RecordIterator. Er puffert jeweils
// eine Seite nativer Records und folgt dem Resumption-Token, bis keines mehr
// geliefert wird. Eine Seite ohne dekodierbare Records beendet die Pagination
// nicht; nur das Fehlen des Tokens tut das.
type recordIterator struct {
	fetcher    *paperFetcher
	normalizer Normalizer

	subjectCode string
	domainCode  string
	from        time.Time
	until       time.Time

	buf   []PaperRecord
	token string
	page  int
	done  bool
}

// Next gibt den nächsten kanonischen Record zurück. Ein Transportfehler
// verwirft den laufenden Seitenzustand und beendet die Iteration endgültig.
func (it *recordIterator) Next(ctx context.Context) (datasources.PaperMetadataRecord, bool, error) {
	for len(it.buf) == 0 {
		if it.done {
			return datasources.PaperMetadataRecord{}, false, nil
		}

		records, token, err := it.fetcher.fetchPage(ctx, it.subjectCode, it.domainCode, it.from, it.until, it.token, it.page)
		if err != nil {
			it.done = true
			it.buf = nil
			return datasources.PaperMetadataRecord{}, false, err
		}
		it.page++
		it.token = token
		if token == "" {
			it.done = true
		}
		it.buf = records
	}

	native := it.buf[0]
	it.buf = it.buf[1:]
	return it.normalizer.Normalize(native), true, nil
}

// doGet führt einen GET mit Query-Parametern aus und liest den kompletten
// Body. Jeder nicht-2xx-Status ist ein Transportfehler.
func doGet(ctx context.Context, client *http.Client, baseURL string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oai request failed: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
