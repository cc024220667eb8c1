package snapshot

import (
	"context"
	"io"
	"time"

	"github.com/amirrezaask/randomset/errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioHealthCheckAfter = time.Second * 2

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

// MinioBucket keeps snapshots as objects of one bucket.
type MinioBucket struct {
	bucketName string

	c *minio.Client
}

// NewMinio connects to the endpoint and creates the bucket when it is missing.
func NewMinio(ctx context.Context, c MinioConfig) (*MinioBucket, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Region: "us-east-1",
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.Secure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio client cannot be created")
	}
	if _, err := client.HealthCheck(minioHealthCheckAfter); err != nil {
		return nil, errors.Wrap(err, "cannot start minio health check")
	}

	exists, err := client.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "minio bucket exists failed")
	}
	if !exists {
		if err := client.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "cannot make new minio bucket")
		}
	}

	return &MinioBucket{c: client, bucketName: c.Bucket}, nil
}

func (m *MinioBucket) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := m.c.PutObject(ctx, m.bucketName, name, r, size, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return errors.Wrap(err, "cannot put object %s/%s", m.bucketName, name)
}

func (m *MinioBucket) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	obj, err := m.c.GetObject(ctx, m.bucketName, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "cannot get object %s/%s", m.bucketName, name)
	}
	// GetObject is lazy, Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.Wrap(ErrNotFound, "%s/%s", m.bucketName, name)
		}
		return nil, errors.Wrap(err, "cannot stat object %s/%s", m.bucketName, name)
	}

	return obj, nil
}
