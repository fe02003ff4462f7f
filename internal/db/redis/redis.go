package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mediocregopher/radix/v4"

	"ely.by/skinbox/internal/textures"
)

const texturesKeyPrefix = "textures:"
const modifiedAtKeySuffix = ":modified-at"

var timeNow = time.Now

// Redis keeps each kind of textures in its own hash: the field is the same object name
// as on the filesystem ({identity}.png) and the value is the raw texture content.
// A separate hash holds the modification time of each object.
type Redis struct {
	client radix.Client
}

func New(ctx context.Context, addr string, poolSize int) (*Redis, error) {
	client, err := (radix.PoolConfig{Size: poolSize}).New(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Redis{
		client: client,
	}, nil
}

func (r *Redis) Put(ctx context.Context, kind textures.Kind, identity string, content io.Reader) (int64, error) {
	// HSET replaces the value in one step, so the content must be fully received before it's sent
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, fmt.Errorf("unable to read texture contents: %w", err)
	}

	err = r.client.Do(ctx, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		return r.put(ctx, conn, kind, objectName(identity), data)
	}))
	if err != nil {
		return 0, err
	}

	return int64(len(data)), nil
}

type actionDoer interface {
	Do(ctx context.Context, action radix.Action) error
}

func (r *Redis) put(ctx context.Context, conn actionDoer, kind textures.Kind, name string, data []byte) error {
	err := conn.Do(ctx, radix.Cmd(nil, "MULTI"))
	if err != nil {
		return err
	}

	err = conn.Do(ctx, radix.FlatCmd(nil, "HSET", texturesKey(kind), name, data))
	if err != nil {
		return discard(ctx, conn, err)
	}

	err = conn.Do(ctx, radix.FlatCmd(nil, "HSET", modifiedAtKey(kind), name, timeNow().Unix()))
	if err != nil {
		return discard(ctx, conn, err)
	}

	return conn.Do(ctx, radix.Cmd(nil, "EXEC"))
}

// discard aborts the open transaction, so the connection goes back to the pool in a clean state
func discard(ctx context.Context, conn actionDoer, err error) error {
	if discardErr := conn.Do(ctx, radix.Cmd(nil, "DISCARD")); discardErr != nil {
		return errors.Join(err, discardErr)
	}

	return err
}

func (r *Redis) Exists(ctx context.Context, kind textures.Kind, identity string) (bool, error) {
	var exists int
	err := r.client.Do(ctx, radix.Cmd(&exists, "HEXISTS", texturesKey(kind), objectName(identity)))
	if err != nil {
		return false, err
	}

	return exists == 1, nil
}

func (r *Redis) List(ctx context.Context, kind textures.Kind) ([]string, error) {
	var names []string
	err := r.client.Do(ctx, radix.Cmd(&names, "HKEYS", texturesKey(kind)))
	if err != nil {
		return nil, err
	}

	return names, nil
}

func (r *Redis) Find(ctx context.Context, kind textures.Kind, identity string) (*textures.Asset, error) {
	var asset *textures.Asset
	err := r.client.Do(ctx, radix.WithConn("", func(ctx context.Context, conn radix.Conn) error {
		var err error
		asset, err = r.find(ctx, conn, kind, identity)

		return err
	}))

	return asset, err
}

func (r *Redis) find(ctx context.Context, conn radix.Conn, kind textures.Kind, identity string) (*textures.Asset, error) {
	name := objectName(identity)

	var data []byte
	maybeData := radix.Maybe{Rcv: &data}
	err := conn.Do(ctx, radix.Cmd(&maybeData, "HGET", texturesKey(kind), name))
	if err != nil {
		return nil, err
	}

	if maybeData.Null {
		return nil, nil
	}

	var modifiedAt int64
	maybeModifiedAt := radix.Maybe{Rcv: &modifiedAt}
	err = conn.Do(ctx, radix.Cmd(&maybeModifiedAt, "HGET", modifiedAtKey(kind), name))
	if err != nil {
		return nil, err
	}

	var modTime time.Time
	if !maybeModifiedAt.Null {
		modTime = time.Unix(modifiedAt, 0)
	}

	return &textures.Asset{
		Kind:     kind,
		Identity: identity,
		File:     io.NopCloser(bytes.NewReader(data)),
		ModTime:  modTime,
	}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Do(ctx, radix.Cmd(nil, "PING"))
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func texturesKey(kind textures.Kind) string {
	return texturesKeyPrefix + kind.Plural()
}

func modifiedAtKey(kind textures.Kind) string {
	return texturesKey(kind) + modifiedAtKeySuffix
}

func objectName(identity string) string {
	return identity + textures.FileExtension
}
