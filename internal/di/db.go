package di

import (
	"context"
	"fmt"

	"github.com/defval/di"
	"github.com/spf13/viper"

	"ely.by/skinbox/internal/db/fs"
	"ely.by/skinbox/internal/db/redis"
	"ely.by/skinbox/internal/db/s3"
	"ely.by/skinbox/internal/eventsubscribers"
	"ely.by/skinbox/internal/http"
	"ely.by/skinbox/internal/textures"
)

const (
	storageDriverFilesystem = "filesystem"
	storageDriverRedis      = "redis"
	storageDriverS3         = "s3"
)

var dbDiOptions = di.Options(
	di.Provide(newAssetStorage,
		di.As(new(textures.AssetStore)),
		di.As(new(http.AssetFinder)),
	),
)

type assetStorage interface {
	textures.AssetStore
	eventsubscribers.Pingable
}

func newAssetStorage(ctx context.Context, container *di.Container, config *viper.Viper) (assetStorage, error) {
	config.SetDefault("storage.driver", storageDriverFilesystem)

	var storage assetStorage
	var err error
	driver := config.GetString("storage.driver")
	switch driver {
	case storageDriverFilesystem:
		storage, err = newFilesystem(config)
	case storageDriverRedis:
		storage, err = newRedis(ctx, config)
	case storageDriverS3:
		storage, err = newS3(ctx, config)
	default:
		return nil, fmt.Errorf("unknown storage driver %q, expected one of: %s, %s, %s", driver, storageDriverFilesystem, storageDriverRedis, storageDriverS3)
	}

	if err != nil {
		return nil, err
	}

	if err := container.Provide(func() *namedHealthChecker {
		return &namedHealthChecker{
			Name:    driver,
			Checker: eventsubscribers.StorageChecker(storage),
		}
	}); err != nil {
		return nil, err
	}

	return storage, nil
}

func newFilesystem(config *viper.Viper) (*fs.Filesystem, error) {
	config.SetDefault("storage.filesystem.basePath", "public/uploads")

	return fs.New(config.GetString("storage.filesystem.basePath"))
}

func newRedis(ctx context.Context, config *viper.Viper) (*redis.Redis, error) {
	config.SetDefault("storage.redis.host", "localhost")
	config.SetDefault("storage.redis.port", 6379)
	config.SetDefault("storage.redis.poolSize", 10)

	return redis.New(
		ctx,
		fmt.Sprintf("%s:%d", config.GetString("storage.redis.host"), config.GetInt("storage.redis.port")),
		config.GetInt("storage.redis.poolSize"),
	)
}

func newS3(ctx context.Context, config *viper.Viper) (*s3.S3, error) {
	config.SetDefault("storage.s3.endpoint", "localhost:9000")
	config.SetDefault("storage.s3.bucket", "skinbox")
	config.SetDefault("storage.s3.prefix", "")

	return s3.New(ctx, s3.Config{
		Endpoint:  config.GetString("storage.s3.endpoint"),
		AccessKey: config.GetString("storage.s3.accessKey"),
		SecretKey: config.GetString("storage.s3.secretKey"),
		Bucket:    config.GetString("storage.s3.bucket"),
		Prefix:    config.GetString("storage.s3.prefix"),
	})
}
