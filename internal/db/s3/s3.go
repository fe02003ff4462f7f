package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ely.by/skinbox/internal/textures"
)

const contentType = "image/png"

type Config struct {
	// Endpoint accepts either "host:port" or a full "http(s)://host:port" URL
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix is prepended to every object key, so the bucket can be shared with other data
	Prefix string
}

// S3 keeps textures as objects named {prefix}{kind plural}/{identity}.png.
// An object becomes visible only after the upload is complete, so readers never see a partial texture.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

func New(ctx context.Context, config Config) (*S3, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name must not be empty")
	}

	endpoint, secure, err := normalizeEndpoint(config.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", config.Bucket)
	}

	return &S3{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

func (s *S3) Put(ctx context.Context, kind textures.Kind, identity string, content io.Reader) (int64, error) {
	info, err := s.client.PutObject(ctx, s.bucket, s.objectKey(kind, identity), content, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, err
	}

	return info.Size, nil
}

func (s *S3) Exists(ctx context.Context, kind textures.Kind, identity string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.objectKey(kind, identity), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (s *S3) List(ctx context.Context, kind textures.Kind) ([]string, error) {
	dir := s.kindPrefix(kind)
	var names []string
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: dir}) {
		if object.Err != nil {
			return nil, object.Err
		}

		name := strings.TrimPrefix(object.Key, dir)
		// Common prefixes of nested "directories" end with a slash
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}

		names = append(names, name)
	}

	return names, nil
}

func (s *S3) Find(ctx context.Context, kind textures.Kind, identity string) (*textures.Asset, error) {
	object, err := s.client.GetObject(ctx, s.bucket, s.objectKey(kind, identity), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	// GetObject is lazy, the first request is made by Stat
	info, err := object.Stat()
	if err != nil {
		_ = object.Close()
		if isNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return &textures.Asset{
		Kind:     kind,
		Identity: identity,
		File:     object,
		ModTime:  info.LastModified,
	}, nil
}

func (s *S3) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}

	return nil
}

func (s *S3) kindPrefix(kind textures.Kind) string {
	return s.prefix + kind.Plural() + "/"
}

func (s *S3) objectKey(kind textures.Kind, identity string) string {
	return s.prefix + path.Join(kind.Plural(), identity+textures.FileExtension)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	code := string(resp.Code)

	return code == "NoSuchKey" || code == "NotFound" || resp.StatusCode == http.StatusNotFound
}

func normalizeEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("s3 endpoint must not be empty")
	}

	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, err
	}

	if u.Host == "" {
		return "", false, fmt.Errorf("invalid s3 endpoint %q", raw)
	}

	if u.Path != "" && u.Path != "/" {
		return "", false, errors.New("s3 endpoint must not contain a path")
	}

	return u.Host, u.Scheme == "https", nil
}
