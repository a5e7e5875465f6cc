// Package mirroring moves catalog files between a local tree and an S3
// compatible warehouse. Public tables are served over plain HTTP by the
// catalog host; the warehouse is how private tables are fetched and how
// datasets are published.
package mirroring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dataforge/dataforge/dfapi"
	"github.com/dataforge/dataforge/pkg/tracing"
)

// WarehouseConfig locates an S3 compatible bucket holding catalog files.
// Credentials come from the ambient AWS config (environment variables or
// the shared credentials file).
type WarehouseConfig struct {
	// Endpoint overrides the S3 endpoint, for non-AWS object stores.
	// Empty means plain AWS.
	Endpoint string
	Region   string
	Bucket   string
}

// Warehouse is a client for one bucket of catalog files.
// Keys in the bucket mirror catalog paths, e.g.
// "garden/ns/2020/ds/mytable.feather".
type Warehouse struct {
	client *s3.Client
	cfg    WarehouseConfig
}

// NewWarehouse connects to the configured bucket and verifies access.
//
// Errors:
//
//    - dataforge-error-warehouse -- when configuration loading fails or
//      the bucket cannot be reached
func NewWarehouse(ctx context.Context, cfg WarehouseConfig) (*Warehouse, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
					SigningRegion:     cfg.Region,
				}, nil
			})))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, dfapi.ErrorWarehouse("failed to load aws configuration", "", err)
	}

	client := s3.NewFromConfig(awsCfg)

	// make sure we can access the specified bucket
	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, dfapi.ErrorWarehouse(
			fmt.Sprintf("could not access bucket %q", cfg.Bucket), "", err)
	}

	return &Warehouse{client: client, cfg: cfg}, nil
}

// Has reports whether the warehouse holds an object at the given key.
//
// Errors:
//
//    - dataforge-error-warehouse -- when the check itself fails
func (w *Warehouse) Has(ctx context.Context, key string) (bool, error) {
	_, err := w.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(w.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var responseError *awshttp.ResponseError
		if errors.As(err, &responseError) && responseError.ResponseError.HTTPStatusCode() == http.StatusNotFound {
			return false, nil
		}
		return false, dfapi.ErrorWarehouse("failed to check for object", key, err)
	}
	return true, nil
}

// Download fetches an object from the warehouse to a local file.
//
// Errors:
//
//    - dataforge-error-io -- when the local file cannot be written
//    - dataforge-error-warehouse -- when the download fails
func (w *Warehouse) Download(ctx context.Context, key string, localPath string) error {
	ctx, span := tracing.Start(ctx, "warehouse download",
		trace.WithAttributes(attribute.String(tracing.AttrKeyWarehouseKey, key)))
	defer span.End()

	f, err := os.Create(localPath)
	if err != nil {
		return dfapi.ErrorIo("failed to create download target", localPath, err)
	}
	defer f.Close()

	downloader := manager.NewDownloader(w.client)
	_, err = downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(w.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return dfapi.ErrorWarehouse("failed to download object", key, err)
	}
	return nil
}

// Upload pushes a local file to the warehouse at the given key.
// Existing objects are overwritten.
//
// Errors:
//
//    - dataforge-error-io -- when the local file cannot be read
//    - dataforge-error-warehouse -- when the upload fails
func (w *Warehouse) Upload(ctx context.Context, localPath string, key string) error {
	ctx, span := tracing.Start(ctx, "warehouse upload",
		trace.WithAttributes(attribute.String(tracing.AttrKeyWarehouseKey, key)))
	defer span.End()

	f, err := os.Open(localPath)
	if err != nil {
		return dfapi.ErrorIo("failed to open file for upload", localPath, err)
	}
	defer f.Close()

	uploader := manager.NewUploader(w.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return dfapi.ErrorWarehouse("failed to upload object", key, err)
	}
	return nil
}
