package output

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/teranos/genpipe/am"
	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// objectStore is the part of *minio.Client the S3 writer uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Writer uploads artifacts to an S3-compatible bucket under
// <prefix>/<unit>/<artifact>.
type S3Writer struct {
	client objectStore
	bucket string
	prefix string
	region string
	log    *zap.SugaredLogger
}

// NewS3Writer connects to the endpoint in cfg.
func NewS3Writer(cfg am.S3Config, log *zap.SugaredLogger) (*S3Writer, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.WithHint(
			errors.NewConfigurationError("S3 output needs an endpoint and a bucket"),
			"set output.s3.endpoint and output.s3.bucket, or MINIO_ENDPOINT")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create MinIO client for %s", cfg.Endpoint)
	}

	return newS3Writer(client, cfg, log), nil
}

func newS3Writer(client objectStore, cfg am.S3Config, log *zap.SugaredLogger) *S3Writer {
	if log == nil {
		log = logger.ComponentLogger("output.s3")
	}
	return &S3Writer{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		region: cfg.Region,
		log:    log,
	}
}

// ObjectKey is where an artifact path is stored in the bucket.
func (w *S3Writer) ObjectKey(artifactPath string) string {
	if w.prefix == "" {
		return artifactPath
	}
	return path.Join(w.prefix, artifactPath)
}

// Write creates the bucket if needed and uploads every artifact.
func (w *S3Writer) Write(ctx context.Context, report *pipeline.Report) (*WriteResult, error) {
	artifacts := report.Artifacts()
	keys := make([]string, len(artifacts))
	for i, sf := range artifacts {
		p, err := ArtifactPath(sf)
		if err != nil {
			return nil, err
		}
		keys[i] = w.ObjectKey(p)
	}

	if err := w.ensureBucket(ctx); err != nil {
		return nil, err
	}

	result := &WriteResult{}
	for i, sf := range artifacts {
		_, err := w.client.PutObject(ctx, w.bucket, keys[i],
			strings.NewReader(sf.Content), int64(len(sf.Content)),
			minio.PutObjectOptions{ContentType: contentType(sf.Name)})
		if err != nil {
			return result, errors.Wrapf(err, "failed to store %s in bucket %s", keys[i], w.bucket)
		}
		result.Written = append(result.Written, keys[i])
	}

	w.log.Infow("Artifacts uploaded",
		logger.FieldBucket, w.bucket,
		logger.FieldCount, len(result.Written))
	return result, nil
}

func (w *S3Writer) ensureBucket(ctx context.Context) error {
	exists, err := w.client.BucketExists(ctx, w.bucket)
	if err != nil {
		return errors.Wrapf(err, "error checking bucket %s", w.bucket)
	}
	if exists {
		return nil
	}
	if err := w.client.MakeBucket(ctx, w.bucket, minio.MakeBucketOptions{Region: w.region}); err != nil {
		return errors.Wrapf(err, "failed to create bucket %s", w.bucket)
	}
	w.log.Infow("Created bucket", logger.FieldBucket, w.bucket)
	return nil
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".ts":
		// mime maps .ts to MPEG transport streams
		return "text/typescript; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "text/plain; charset=utf-8"
}
