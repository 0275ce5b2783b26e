package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"portal/internal/app/apperr"
	"portal/internal/app/entitlement"
)

// MinIOClient archives batch reports as JSON objects in one bucket.
type MinIOClient struct {
	client     *minio.Client
	bucketName string
	urlTTL     time.Duration
}

// NewMinIOClient connects to MinIO and creates the bucket when missing.
func NewMinIOClient(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, urlTTL time.Duration) (*MinIOClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logrus.Infof("Bucket %s created successfully", bucketName)
	}

	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &MinIOClient{client: client, bucketName: bucketName, urlTTL: urlTTL}, nil
}

// ArchiveBatchReport uploads result and returns its object key.
func (m *MinIOClient) ArchiveBatchReport(ctx context.Context, result entitlement.BatchResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode batch report: %w", err)
	}
	key := ReportKey(string(result.Operation), result.StartedAt)

	_, err = m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload batch report: %w", err)
	}

	logrus.Infof("Batch report %s uploaded", key)
	return key, nil
}

// ReportURL returns a temporary download link for an archived report.
func (m *MinIOClient) ReportURL(ctx context.Context, key string) (string, error) {
	if !ValidReportKey(key) {
		return "", apperr.Validation("key", "malformed report key")
	}
	if _, err := m.client.StatObject(ctx, m.bucketName, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", apperr.ErrNotFound
		}
		return "", fmt.Errorf("failed to check report: %w", err)
	}

	url, err := m.client.PresignedGetObject(ctx, m.bucketName, key, m.urlTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}

var reportKeyPattern = regexp.MustCompile(`^batch_[a-z-]+_\d{8}T\d{6}_[0-9a-f]{8}\.json$`)

// ReportKey names the object for a batch started at ts.
func ReportKey(operation string, ts time.Time) string {
	return fmt.Sprintf("batch_%s_%s_%s.json", operation, ts.UTC().Format("20060102T150405"), uuid.New().String()[:8])
}

func ValidReportKey(key string) bool {
	return reportKeyPattern.MatchString(key)
}
