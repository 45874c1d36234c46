package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/structure"
	"github.com/turtacn/molgrid/pkg/errors"
)

// Scheme prefixes object locations in configuration and CLI flags.
const Scheme = "s3://"

// ParseURI splits "s3://bucket/some/prefix" into bucket and prefix. ok is
// false when uri does not use the s3 scheme.
func ParseURI(uri string) (bucket, prefix string, ok bool) {
	if !strings.HasPrefix(uri, Scheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(uri, Scheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, strings.Trim(prefix, "/"), bucket != ""
}

func objectName(prefix, name string) string {
	if prefix == "" {
		return strings.TrimPrefix(name, "/")
	}
	return path.Join(prefix, name)
}

// ObjectSource reads structure and list files from a bucket prefix. It
// implements structure.Source.
type ObjectSource struct {
	client *MinIOClient
	bucket string
	prefix string
}

var _ structure.Source = (*ObjectSource)(nil)

// NewObjectSource returns a source over bucket/prefix. An empty bucket means
// the client's configured bucket.
func NewObjectSource(client *MinIOClient, bucket, prefix string) *ObjectSource {
	if bucket == "" {
		bucket = client.Bucket()
	}
	return &ObjectSource{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *ObjectSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if s.client.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	key := objectName(s.prefix, name)
	rc, err := s.client.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureUnreadable, "get object").WithDetail(s.bucket + "/" + key)
	}
	return rc, nil
}

func (s *ObjectSource) Describe() string {
	return Scheme + path.Join(s.bucket, s.prefix)
}

// List returns object names under the source prefix ending in suffix,
// relative to the prefix.
func (s *ObjectSource) List(ctx context.Context, suffix string) ([]string, error) {
	var names []string
	opts := minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}
	for obj := range s.client.api.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list objects").WithDetail(s.Describe())
		}
		if strings.HasSuffix(obj.Key, suffix) {
			names = append(names, strings.TrimPrefix(strings.TrimPrefix(obj.Key, s.prefix), "/"))
		}
	}
	return names, nil
}

// ObjectSink uploads exported artifacts under a bucket prefix.
type ObjectSink struct {
	client *MinIOClient
	bucket string
	prefix string
	logger logging.Logger
}

func NewObjectSink(client *MinIOClient, bucket, prefix string, log logging.Logger) *ObjectSink {
	if bucket == "" {
		bucket = client.Bucket()
	}
	return &ObjectSink{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: log}
}

// Put uploads data as name under the sink prefix.
func (s *ObjectSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	if s.client.isClosed() {
		return ErrMinIOClientClosed
	}
	key := objectName(s.prefix, name)
	info, err := s.client.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "put object").WithDetail(s.bucket + "/" + key)
	}
	s.logger.Debug("object uploaded",
		logging.String("bucket", s.bucket),
		logging.String("key", key),
		logging.Int64("size", info.Size),
	)
	return nil
}

func (s *ObjectSink) Describe() string {
	return Scheme + path.Join(s.bucket, s.prefix)
}

//Personal.AI order the ending
