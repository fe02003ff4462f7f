package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path"

	"github.com/google/uuid"

	"ely.by/skinbox/internal/textures"
)

func New(basePath string) (*Filesystem, error) {
	if basePath == "" {
		return nil, errors.New("base path of the filesystem storage must not be empty")
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create storage directory: %w", err)
	}

	root, err := os.OpenRoot(basePath)
	if err != nil {
		return nil, err
	}

	return &Filesystem{path: basePath, root: root}, nil
}

// Filesystem keeps textures as {basePath}/{kind plural}/{identity}.png.
// All operations go through os.Root, so no name can point outside the basePath.
type Filesystem struct {
	path string
	root *os.Root
}

func (f *Filesystem) Put(ctx context.Context, kind textures.Kind, identity string, content io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dir := kind.Plural()
	if err := f.root.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("unable to create %s directory: %w", dir, err)
	}

	// The temp file lives in the same directory as the target so the rename never crosses devices.
	// Its name has no .png suffix, so it never shows up as a texture.
	tmpName := path.Join(dir, "."+uuid.New().String()+".tmp")
	tmp, err := f.root.Create(tmpName)
	if err != nil {
		return 0, fmt.Errorf("unable to create temp file: %w", err)
	}

	succeed := false
	defer func() {
		_ = tmp.Close()
		if !succeed {
			_ = f.root.Remove(tmpName)
		}
	}()

	size, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return 0, fmt.Errorf("unable to write texture contents: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("unable to sync texture file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("unable to close texture file: %w", err)
	}

	if err := f.root.Rename(tmpName, objectName(kind, identity)); err != nil {
		return 0, fmt.Errorf("unable to replace texture file: %w", err)
	}

	succeed = true

	return size, nil
}

func (f *Filesystem) Exists(ctx context.Context, kind textures.Kind, identity string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := f.root.Stat(objectName(kind, identity))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return info.Mode().IsRegular(), nil
}

func (f *Filesystem) List(ctx context.Context, kind textures.Kind) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := iofs.ReadDir(f.root.FS(), kind.Plural())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

func (f *Filesystem) Find(ctx context.Context, kind textures.Kind, identity string) (*textures.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := f.root.Open(objectName(kind, identity))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, nil
	}

	return &textures.Asset{
		Kind:     kind,
		Identity: identity,
		File:     file,
		ModTime:  info.ModTime(),
	}, nil
}

func (f *Filesystem) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := f.root.Stat(".")

	return err
}

func (f *Filesystem) Close() error {
	return f.root.Close()
}

func objectName(kind textures.Kind, identity string) string {
	return path.Join(kind.Plural(), identity+textures.FileExtension)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	return r.r.Read(p)
}
