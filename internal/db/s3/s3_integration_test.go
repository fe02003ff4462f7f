//go:build s3

package s3

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/suite"

	"ely.by/skinbox/internal/textures"
)

func envOrDefault(key string, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return def
}

type s3TestSuite struct {
	suite.Suite

	S3 *S3
}

func (s *s3TestSuite) SetupSuite() {
	config := Config{
		Endpoint:  envOrDefault("STORAGE_S3_ENDPOINT", "localhost:9000"),
		AccessKey: envOrDefault("STORAGE_S3_ACCESSKEY", "minioadmin"),
		SecretKey: envOrDefault("STORAGE_S3_SECRETKEY", "minioadmin"),
		Bucket:    envOrDefault("STORAGE_S3_BUCKET", "skinbox-test"),
		Prefix:    "integration/",
	}

	conn, err := New(context.Background(), config)
	s.Require().NoError(err, "the bucket must exist before running the integration tests")
	s.S3 = conn
}

func (s *s3TestSuite) SetupSubTest() {
	ctx := context.Background()
	objects := s.S3.client.ListObjects(ctx, s.S3.bucket, minio.ListObjectsOptions{Prefix: s.S3.prefix, Recursive: true})
	for object := range objects {
		s.Require().NoError(object.Err)
		s.Require().NoError(s.S3.client.RemoveObject(ctx, s.S3.bucket, object.Key, minio.RemoveObjectOptions{}))
	}
}

func TestS3(t *testing.T) {
	suite.Run(t, new(s3TestSuite))
}

func (s *s3TestSuite) TestPutAndFind() {
	s.Run("store and replace", func() {
		ctx := context.Background()
		size, err := s.S3.Put(ctx, textures.KindSkin, "steve", strings.NewReader("first"))
		s.Require().NoError(err)
		s.Require().Equal(int64(5), size)

		_, err = s.S3.Put(ctx, textures.KindSkin, "steve", strings.NewReader("second"))
		s.Require().NoError(err)

		asset, err := s.S3.Find(ctx, textures.KindSkin, "steve")
		s.Require().NoError(err)
		s.Require().NotNil(asset)
		defer asset.File.Close()

		content, err := io.ReadAll(asset.File)
		s.Require().NoError(err)
		s.Require().Equal("second", string(content))
		s.Require().False(asset.ModTime.IsZero())
	})

	s.Run("find missing object", func() {
		asset, err := s.S3.Find(context.Background(), textures.KindCape, "steve")
		s.Require().NoError(err)
		s.Require().Nil(asset)
	})
}

func (s *s3TestSuite) TestExistsAndList() {
	s.Run("list stored names", func() {
		ctx := context.Background()
		_, _ = s.S3.Put(ctx, textures.KindCape, "alice", strings.NewReader("a"))
		_, _ = s.S3.Put(ctx, textures.KindCape, "bob", strings.NewReader("b"))

		names, err := s.S3.List(ctx, textures.KindCape)
		s.Require().NoError(err)
		s.Require().ElementsMatch([]string{"alice.png", "bob.png"}, names)

		exists, err := s.S3.Exists(ctx, textures.KindCape, "alice")
		s.Require().NoError(err)
		s.Require().True(exists)

		exists, err = s.S3.Exists(ctx, textures.KindSkin, "alice")
		s.Require().NoError(err)
		s.Require().False(exists)
	})
}

func (s *s3TestSuite) TestPing() {
	s.Require().NoError(s.S3.Ping(context.Background()))
}
