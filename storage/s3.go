package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"lecture-admin/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Blobs abstrahiert den Objekt-Store. Merge- und Restore-Engine hängen nur
// an diesem Interface, damit Tests einen In-Memory-Store verwenden können.
type Blobs interface {
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, srcKey, destKey string) error
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	ListKeysByPrefix(ctx context.Context, prefix string) ([]string, error)
	ListPrefixesByDelimiter(ctx context.Context, prefix string) ([]string, error)
}

// R2 implementiert Blobs über einen S3-kompatiblen Bucket (Cloudflare R2).
type R2 struct {
	client *s3.Client
	bucket string
}

// NewS3Client erstellt einen S3-Client für den R2-Endpoint.
func NewS3Client(cfg *config.Config) (*s3.Client, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.R2Endpoint,
				SigningRegion:     cfg.R2Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.R2Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2Key, cfg.R2Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg), nil
}

// NewR2 erstellt den Blob-Store für den konfigurierten Bucket.
func NewR2(cfg *config.Config) (*R2, error) {
	client, err := NewS3Client(cfg)
	if err != nil {
		return nil, err
	}
	return &R2{client: client, bucket: cfg.R2Bucket}, nil
}

// Exists prüft per HeadObject, ob ein Key im Bucket existiert.
func (r *R2) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Copy kopiert ein Objekt innerhalb des Buckets.
func (r *R2) Copy(ctx context.Context, srcKey, destKey string) error {
	_, err := r.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(r.bucket),
		CopySource: aws.String(fmt.Sprintf("%s/%s", r.bucket, srcKey)),
		Key:        aws.String(destKey),
	})
	return err
}

// Delete entfernt ein Objekt aus dem Bucket.
func (r *R2) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Get lädt ein Objekt und gibt den Inhalt zurück.
func (r *R2) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Upload lädt eine Datei in den Bucket hoch.
func (r *R2) Upload(ctx context.Context, key string, data []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// ListKeysByPrefix listet alle Keys unter einem Präfix (paginiert).
func (r *R2) ListKeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// ListPrefixesByDelimiter listet die Unterverzeichnisse eines Präfixes,
// z. B. die Kurs-Verzeichnisse im Bucket-Root.
func (r *R2) ListPrefixesByDelimiter(ctx context.Context, prefix string) ([]string, error) {
	var prefixes []string
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(r.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range page.CommonPrefixes {
			prefixes = append(prefixes, aws.ToString(p.Prefix))
		}
	}
	return prefixes, nil
}
