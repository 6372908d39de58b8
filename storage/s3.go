package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"paper-harvest/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// NewS3Client erstellt einen S3-Client für Strato HiDrive.
func NewS3Client(cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.StratoS3URL,
				SigningRegion:     cfg.StratoS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.StratoS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.StratoS3Key, cfg.StratoS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// UploadFile lädt ein Objekt ins S3 hoch.
func UploadFile(ctx context.Context, client *s3.Client, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	return err
}

// PageArchiver legt rohe OAI-Antwortseiten als Objekte im Bucket ab. Das
// Archiv ist rein diagnostisch; ein fehlgeschlagener Upload darf die Ingestion
// nicht aufhalten, daher loggt der Aufrufer Fehler nur.
type PageArchiver struct {
	Client *s3.Client
	Bucket string
	Logger *zap.Logger
}

// ArchivePage schreibt eine Antwortseite unter einem Schlüssel aus Datasource,
// Subject, Abrufdatum und Seitennummer.
func (a *PageArchiver) ArchivePage(ctx context.Context, datasource, subjectCode string, page int, body []byte) error {
	key := fmt.Sprintf("raw/%s/%s/%s/page-%04d.xml",
		datasource, subjectCode, time.Now().UTC().Format("2006-01-02"), page)
	if err := UploadFile(ctx, a.Client, a.Bucket, key, body); err != nil {
		return fmt.Errorf("archivierung von %s fehlgeschlagen: %w", key, err)
	}
	return nil
}
