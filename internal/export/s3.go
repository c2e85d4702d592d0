// Package export archives completed pipeline results to object storage for
// offline analysis. Archival is best-effort: a failed write is logged by the
// caller and never fails the run that produced the result.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/adpilot/internal/domain"
)

// Archiver persists a finished pipeline result.
type Archiver interface {
	Archive(ctx context.Context, result *domain.PipelineResult) error
}

// S3Archiver writes result JSON to an S3 bucket, one object per run window.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

// NewS3Archiver creates an archiver against the given bucket using the
// default AWS credential chain (optionally a named shared-config profile).
func NewS3Archiver(ctx context.Context, bucket, region, profile string) (*S3Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Archiver{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// Archive implements Archiver.
func (a *S3Archiver) Archive(ctx context.Context, result *domain.PipelineResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ObjectKey(result)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading result to s3://%s: %w", a.bucket, err)
	}
	return nil
}

// ObjectKey is the canonical archive path for a result:
// orgs/{org}/runs/{start}_{end}.json. Re-running the same window overwrites
// the previous object, which is correct: identical inputs, identical result.
func ObjectKey(result *domain.PipelineResult) string {
	return fmt.Sprintf("orgs/%s/runs/%s_%s.json",
		result.OrganizationID,
		result.Window.Start.Format("2006-01-02"),
		result.Window.End.Format("2006-01-02"))
}
