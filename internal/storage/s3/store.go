package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fedask/fedask/internal/config"
	"github.com/fedask/fedask/internal/storage"
)

const (
	parquetContentType = "application/vnd.apache.parquet"
	jsonContentType    = "application/json"
)

type Config struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// ConfigFrom maps the object store section of the service config.
func ConfigFrom(cfg config.ObjectStoreConfig) Config {
	return Config{
		Endpoint:         cfg.Endpoint,
		Region:           cfg.Region,
		Bucket:           cfg.Bucket,
		AccessKeyID:      cfg.AccessKeyID,
		SecretAccessKey:  cfg.SecretAccessKey,
		UseSSL:           cfg.UseSSL,
		Prefix:           cfg.Prefix,
		AutoCreateBucket: cfg.AutoCreateBucket,
	}
}

// bucketAPI is the subset of *minio.Client the store calls.
type bucketAPI interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
}

// Store holds the documents snapshot parts, their manifest and the raw
// archives in one bucket. Keys outside the documents/ and raw/ trees are
// rejected.
type Store struct {
	api    bucketAPI
	bucket string
	root   string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client for %s: %w", endpoint, err)
	}

	store, err := newStore(client, cfg.Bucket, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	if cfg.AutoCreateBucket {
		if err := store.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func newStore(api bucketAPI, bucket, prefix string) (*Store, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	root := strings.Trim(strings.TrimSpace(prefix), "/")
	if root != "" {
		root = path.Clean(root)
	}
	return &Store{api: api, bucket: bucket, root: root}, nil
}

// Put writes one object. Without an explicit content type the key extension
// decides it, and the manifest is marked uncacheable because every run
// rewrites it.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	object, err := s.objectName(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	putOpts := minio.PutObjectOptions{ContentType: opts.ContentType}
	if putOpts.ContentType == "" {
		putOpts.ContentType = contentTypeFor(key)
	}
	if strings.TrimPrefix(key, "/") == storage.ManifestPath {
		putOpts.CacheControl = "no-cache"
	}

	uploaded, err := s.api.PutObject(ctx, s.bucket, object, body, size, putOpts)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload %s to bucket %s: %w", object, s.bucket, translate(err))
	}
	return storage.ObjectInfo{Key: key, Size: uploaded.Size, ETag: uploaded.ETag}, nil
}

// Get stats the object first and then reads exactly that version, so a
// manifest replaced mid-read fails instead of mixing two runs.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	object, err := s.objectName(key)
	if err != nil {
		return nil, err
	}
	stat, err := s.api.StatObject(ctx, s.bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return nil, s.failure("read", object, err)
	}

	getOpts := minio.GetObjectOptions{}
	if stat.ETag != "" {
		if err := getOpts.SetMatchETag(stat.ETag); err != nil {
			return nil, fmt.Errorf("read %s: %w", object, err)
		}
	}
	reader, err := s.api.GetObject(ctx, s.bucket, object, getOpts)
	if err != nil {
		return nil, s.failure("read", object, err)
	}
	return reader, nil
}

func (s *Store) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	object, err := s.objectName(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	stat, err := s.api.StatObject(ctx, s.bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return storage.ObjectInfo{}, s.failure("stat", object, err)
	}
	return storage.ObjectInfo{Key: key, Size: stat.Size, ETag: stat.ETag, LastModified: stat.LastModified}, nil
}

// Delete is idempotent.
func (s *Store) Delete(ctx context.Context, key string) error {
	object, err := s.objectName(key)
	if err != nil {
		return err
	}
	if err := s.api.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{}); err != nil {
		if translated := translate(err); !errors.Is(translated, storage.ErrObjectNotFound) {
			return fmt.Errorf("remove %s from bucket %s: %w", object, s.bucket, translated)
		}
	}
	return nil
}

// ensureBucket tolerates a concurrent creator, since the API and the
// pipeline worker may both start against an empty bucket.
func (s *Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("look up bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	err = s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return nil
	}
	return fmt.Errorf("make bucket %s: %w", s.bucket, err)
}

// objectName maps a storage key onto the bucket, below the configured root.
func (s *Store) objectName(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	top, _, _ := strings.Cut(key, "/")
	if top != storage.DocumentsPrefix && top != storage.RawPrefix {
		return "", fmt.Errorf("object key %q is outside the %s/ and %s/ trees", key, storage.DocumentsPrefix, storage.RawPrefix)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("object key %q has an empty or relative segment", key)
		}
	}
	if s.root == "" {
		return key, nil
	}
	return s.root + "/" + key, nil
}

func (s *Store) failure(op, object string, err error) error {
	translated := translate(err)
	if errors.Is(translated, storage.ErrObjectNotFound) {
		return storage.ErrObjectNotFound
	}
	return fmt.Errorf("%s %s in bucket %s: %w", op, object, s.bucket, translated)
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".parquet":
		return parquetContentType
	case ".json":
		return jsonContentType
	}
	return "application/octet-stream"
}

// parseEndpoint accepts host:port or a URL. An https URL forces TLS.
func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("object store endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse object store endpoint: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("object store endpoint %q has no host", raw)
	}
	if strings.Trim(parsed.Path, "/") != "" {
		return "", false, fmt.Errorf("object store endpoint %q must not carry a path", raw)
	}
	switch parsed.Scheme {
	case "https":
		return parsed.Host, true, nil
	case "", "http":
		return parsed.Host, useSSL, nil
	}
	return "", false, fmt.Errorf("object store endpoint %q: unsupported scheme %q", raw, parsed.Scheme)
}

func translate(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return storage.ErrObjectNotFound
	}
	return err
}
