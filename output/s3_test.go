package output

import (
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/pipeline"
)

type fakeStore struct {
	buckets     map[string]bool
	objects     map[string]string
	types       map[string]string
	madeBuckets []string
	putErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		buckets: map[string]bool{},
		objects: map[string]string{},
		types:   map[string]string{},
	}
}

func (f *fakeStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	f.madeBuckets = append(f.madeBuckets, bucket)
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+key] = string(data)
	f.types[key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestS3Writer_Write(t *testing.T) {
	store := newFakeStore()
	w := newS3Writer(store, am.S3Config{Bucket: "gen", Prefix: "/builds/"}, zap.NewNop().Sugar())

	report := runReport(t, produced{unit: "example.com/demo/jobs", artifacts: []pipeline.Artifact{
		artifact("jobs.ts", "export type A = 1;\n"),
		artifact("jobs.md", "# jobs\n"),
	}})

	result, err := w.Write(context.Background(), report)
	require.NoError(t, err)

	assert.Equal(t, []string{"builds/example.com/demo/jobs/jobs.ts", "builds/example.com/demo/jobs/jobs.md"}, result.Written)
	assert.Equal(t, []string{"gen"}, store.madeBuckets)
	assert.Equal(t, "export type A = 1;\n", store.objects["gen/builds/example.com/demo/jobs/jobs.ts"])
	assert.Equal(t, "text/typescript; charset=utf-8", store.types["builds/example.com/demo/jobs/jobs.ts"])
	assert.Equal(t, "text/markdown; charset=utf-8", store.types["builds/example.com/demo/jobs/jobs.md"])

	// The bucket exists now and is not created again.
	_, err = w.Write(context.Background(), report)
	require.NoError(t, err)
	assert.Len(t, store.madeBuckets, 1)
}

func TestS3Writer_ObjectKeyWithoutPrefix(t *testing.T) {
	w := newS3Writer(newFakeStore(), am.S3Config{Bucket: "gen"}, nil)
	assert.Equal(t, "u/a.ts", w.ObjectKey("u/a.ts"))
}

func TestS3Writer_PutFailure(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("access denied")
	w := newS3Writer(store, am.S3Config{Bucket: "gen"}, nil)

	report := runReport(t, produced{unit: "u", artifacts: []pipeline.Artifact{artifact("a.ts", "x")}})
	_, err := w.Write(context.Background(), report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Contains(t, err.Error(), "u/a.ts")
}

func TestNewS3Writer_RequiresEndpointAndBucket(t *testing.T) {
	_, err := NewS3Writer(am.S3Config{Bucket: "gen"}, nil)
	assert.True(t, errors.IsConfigurationError(err))

	w, err := NewS3Writer(am.S3Config{Endpoint: "localhost:9000", Bucket: "gen", Prefix: "p"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "p/u/a.ts", w.ObjectKey("u/a.ts"))
}
