package minio

import (
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adstedt/contentmax-sub005/internal/config"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
)

type fakeAPI struct {
	buckets map[string]bool
	objects map[string][]byte // key -> data

	putErr    error
	presigned string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		buckets:   map[string]bool{},
		objects:   map[string][]byte{},
		presigned: "https://storage.example.com/signed",
	}
}

func (f *fakeAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeAPI) MakeBucket(ctx context.Context, bucket string, opts miniogo.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeAPI) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error) {
	if f.putErr != nil {
		return miniogo.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return miniogo.UploadInfo{}, err
	}
	f.objects[key] = data
	return miniogo.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data)), ETag: "etag-1"}, nil
}

func (f *fakeAPI) GetObject(ctx context.Context, bucket, key string, opts miniogo.GetObjectOptions) (*miniogo.Object, error) {
	return nil, errors.New(errors.ErrCodeNotImplemented, "not supported by fake")
}

func (f *fakeAPI) StatObject(ctx context.Context, bucket, key string, opts miniogo.StatObjectOptions) (miniogo.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return miniogo.ObjectInfo{}, miniogo.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return miniogo.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeAPI) RemoveObject(ctx context.Context, bucket, key string, opts miniogo.RemoveObjectOptions) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeAPI) ListObjects(ctx context.Context, bucket string, opts miniogo.ListObjectsOptions) <-chan miniogo.ObjectInfo {
	ch := make(chan miniogo.ObjectInfo)
	go func() {
		defer close(ch)
		for key, data := range f.objects {
			if len(opts.Prefix) <= len(key) && key[:len(opts.Prefix)] == opts.Prefix {
				ch <- miniogo.ObjectInfo{Key: key, Size: int64(len(data))}
			}
		}
	}()
	return ch
}

func (f *fakeAPI) PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	return url.Parse(f.presigned + "/" + key)
}

func testStore(t *testing.T) (ReportStore, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	client := NewClientWithAPI(api, config.MinIOConfig{
		Bucket:        "contentmax-reports",
		PresignExpiry: time.Hour,
	}, logging.NewNopLogger())
	return NewReportStore(client, logging.NewNopLogger()), api
}

func TestClient_EnsureBucketCreatesOnce(t *testing.T) {
	api := newFakeAPI()
	client := NewClientWithAPI(api, config.MinIOConfig{Bucket: "contentmax-reports"}, logging.NewNopLogger())
	ctx := context.Background()

	require.NoError(t, client.EnsureBucket(ctx))
	assert.True(t, api.buckets["contentmax-reports"])
	require.NoError(t, client.EnsureBucket(ctx))
	require.NoError(t, client.HealthCheck(ctx))
}

func TestClient_HealthCheckFailsWithoutBucket(t *testing.T) {
	api := newFakeAPI()
	client := NewClientWithAPI(api, config.MinIOConfig{Bucket: "missing"}, logging.NewNopLogger())
	assert.Error(t, client.HealthCheck(context.Background()))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "reports/run-1/opportunities.csv", ObjectKey("run-1", "opportunities.csv"))
}

func TestReportStore_PutAndList(t *testing.T) {
	store, api := testStore(t)
	ctx := context.Background()

	obj, err := store.Put(ctx, "run-1", "opportunities.csv", []byte("node_id,total\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "reports/run-1/opportunities.csv", obj.Key)
	assert.EqualValues(t, 14, obj.Size)
	assert.Equal(t, []byte("node_id,total\n"), api.objects[obj.Key])

	_, err = store.Put(ctx, "run-2", "taxonomy.csv", []byte("id,title\n"), "text/csv")
	require.NoError(t, err)

	listed, err := store.List(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, obj.Key, listed[0].Key)
}

func TestReportStore_Put_Validation(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "", "a.csv", nil, "text/csv")
	assert.Error(t, err)
	_, err = store.Put(ctx, "run-1", "", nil, "text/csv")
	assert.Error(t, err)
	_, err = store.Put(ctx, "run-1", "nested/name.csv", nil, "text/csv")
	assert.Error(t, err)
}

func TestReportStore_DownloadURL(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "run-1", "opportunities.csv", []byte("x"), "text/csv")
	require.NoError(t, err)

	link, err := store.DownloadURL(ctx, "run-1", "opportunities.csv", 0)
	require.NoError(t, err)
	assert.Contains(t, link, "reports/run-1/opportunities.csv")

	_, err = store.DownloadURL(ctx, "run-1", "absent.csv", 0)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestReportStore_Delete(t *testing.T) {
	store, api := testStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "run-1", "opportunities.csv", []byte("x"), "text/csv")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "run-1", "opportunities.csv"))
	assert.Empty(t, api.objects)
}
