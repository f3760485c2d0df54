package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/salon-crm/internal/config"
	"github.com/ignite/salon-crm/internal/domain"
)

// S3API is the part of *s3.Client the report store calls.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3ReportStore writes run reports to
// s3://<bucket>/<prefix>/YYYY/MM/DD/<run_id>.json.
type S3ReportStore struct {
	client S3API
	bucket string
	prefix string
}

// NewS3ReportStore loads AWS credentials the usual way (profile when set,
// otherwise the default chain) and returns a store for cfg.S3Bucket.
func NewS3ReportStore(ctx context.Context, cfg config.ReportConfig) (*S3ReportStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if profile := cfg.GetAWSProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewS3ReportStoreWithClient(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix), nil
}

// NewS3ReportStoreWithClient wraps an existing client.
func NewS3ReportStoreWithClient(client S3API, bucket, prefix string) *S3ReportStore {
	return &S3ReportStore{client: client, bucket: bucket, prefix: prefix}
}

// Key is the object key for a run.
func (s *S3ReportStore) Key(summary domain.RunSummary) string {
	return path.Join(s.prefix, reportName(summary))
}

// Record implements segmentation.Reporter.
func (s *S3ReportStore) Record(ctx context.Context, summary domain.RunSummary) error {
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(summary)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting run report to S3: %w", err)
	}
	return nil
}

// Get reads a report back by key.
func (s *S3ReportStore) Get(ctx context.Context, key string) (*domain.RunSummary, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting run report from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object body: %w", err)
	}
	var summary domain.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshaling run report: %w", err)
	}
	return &summary, nil
}

// Ping checks the bucket is reachable with the current credentials.
func (s *S3ReportStore) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func reportName(summary domain.RunSummary) string {
	return path.Join(summary.StartedAt.Format("2006/01/02"), summary.ID+".json")
}
