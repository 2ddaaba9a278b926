package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// ErrReportNotFound is returned when a stored report does not exist.
var ErrReportNotFound = errors.New(errors.ErrCodeNotFound, "report not found")

// ReportObject describes one stored report.
type ReportObject struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// ReportStore persists exported reports under reports/<run-id>/<name>.
type ReportStore interface {
	Put(ctx context.Context, runID common.RunID, name string, data []byte, contentType string) (*ReportObject, error)
	Get(ctx context.Context, runID common.RunID, name string) ([]byte, *ReportObject, error)
	List(ctx context.Context, runID common.RunID) ([]ReportObject, error)
	Delete(ctx context.Context, runID common.RunID, name string) error
	DownloadURL(ctx context.Context, runID common.RunID, name string, expiry time.Duration) (string, error)
}

type reportStore struct {
	client *Client
	logger logging.Logger
}

// NewReportStore constructs the report store over a connected client.
func NewReportStore(client *Client, log logging.Logger) ReportStore {
	return &reportStore{client: client, logger: log.Named("storage.reports")}
}

// ObjectKey builds the canonical object key for a report.
func ObjectKey(runID common.RunID, name string) string {
	return fmt.Sprintf("reports/%s/%s", runID, name)
}

func (s *reportStore) Put(ctx context.Context, runID common.RunID, name string, data []byte, contentType string) (*ReportObject, error) {
	if runID == "" || name == "" || strings.Contains(name, "/") {
		return nil, errors.New(errors.ErrCodeValidation, "run id and a flat report name are required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := ObjectKey(runID, name)
	info, err := s.client.API().PutObject(ctx, s.client.Bucket(), key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "report upload failed").
			WithDetail("key=" + key)
	}

	s.logger.Info("report stored",
		logging.String("key", key),
		logging.Int64("bytes", info.Size),
	)
	return &ReportObject{
		Key:         key,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: contentType,
	}, nil
}

func (s *reportStore) Get(ctx context.Context, runID common.RunID, name string) ([]byte, *ReportObject, error) {
	key := ObjectKey(runID, name)
	obj, err := s.client.API().GetObject(ctx, s.client.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorageError, "report download failed")
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil, ErrReportNotFound
		}
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorageError, "report stat failed")
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeStorageError, "report read failed")
	}

	return data, &ReportObject{
		Key:          key,
		Size:         stat.Size,
		ETag:         stat.ETag,
		ContentType:  stat.ContentType,
		LastModified: stat.LastModified,
	}, nil
}

func (s *reportStore) List(ctx context.Context, runID common.RunID) ([]ReportObject, error) {
	prefix := fmt.Sprintf("reports/%s/", runID)
	ch := s.client.API().ListObjects(ctx, s.client.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var out []ReportObject
	for obj := range ch {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "report listing failed")
		}
		out = append(out, ReportObject{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	return out, nil
}

func (s *reportStore) Delete(ctx context.Context, runID common.RunID, name string) error {
	key := ObjectKey(runID, name)
	if err := s.client.API().RemoveObject(ctx, s.client.Bucket(), key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "report delete failed").
			WithDetail("key=" + key)
	}
	return nil
}

func (s *reportStore) DownloadURL(ctx context.Context, runID common.RunID, name string, expiry time.Duration) (string, error) {
	key := ObjectKey(runID, name)
	if _, err := s.client.API().StatObject(ctx, s.client.Bucket(), key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrReportNotFound
		}
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "report stat failed")
	}
	return s.client.PresignedGetURL(ctx, key, expiry)
}
