package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// Leer lassen schaltet die API-Key-Prüfung ab.
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	ArxivBaseURL string `envconfig:"ARXIV_BASE_URL" default:"https://oaipmh.arxiv.org/oai"`

	// HTTP-Client für die OAI-Abrufe
	RequestTimeoutSeconds int `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"30"`
	MaxConnections        int `envconfig:"MAX_CONNECTIONS" default:"10"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 0 * * *"`

	// Datasource-Konfiguration
	EnabledDatasources string `envconfig:"ENABLED_DATASOURCES" default:"arxiv"`
	DefaultCursorDate  string `envconfig:"DEFAULT_CURSOR_DATE" default:"2023-01-01"`

	// Optionales Archiv der rohen OAI-Seiten in S3
	ArchiveRawPages bool   `envconfig:"ARCHIVE_RAW_PAGES" default:"false"`
	StratoS3Key     string `envconfig:"STRATO_S3_KEY"`
	StratoS3Secret  string `envconfig:"STRATO_S3_SECRET"`
	StratoS3URL     string `envconfig:"STRATO_S3_URL"`
	StratoS3Region  string `envconfig:"STRATO_S3_REGION"`
	StratoS3Bucket  string `envconfig:"STRATO_S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// CursorDate parst den konfigurierten Default-Cursor.
func (c *Config) CursorDate() (time.Time, error) {
	cursor, err := time.Parse("2006-01-02", c.DefaultCursorDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("DEFAULT_CURSOR_DATE ungültig: %w", err)
	}
	return cursor, nil
}

// Datasources liefert die Liste der aktivierten Datasource-Namen.
func (c *Config) Datasources() []string {
	parts := strings.Split(c.EnabledDatasources, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// RequestTimeout liefert den Timeout für einzelne OAI-Requests.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
