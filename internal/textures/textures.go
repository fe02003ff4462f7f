package textures

import (
	"context"
	"fmt"
	"io"
	"time"
)

type Kind string

const (
	KindSkin Kind = "skin"
	KindCape Kind = "cape"
)

// Kinds lists all supported kinds in the order they're processed and displayed
var Kinds = []Kind{KindSkin, KindCape}

// FileExtension is appended to the identity to get the stored object name
const FileExtension = ".png"

func ParseKind(value string) (Kind, error) {
	for _, kind := range Kinds {
		if string(kind) == value {
			return kind, nil
		}
	}

	return "", fmt.Errorf("unknown textures kind %q", value)
}

// ParsePluralKind resolves URL segments like "skins" or "capes"
func ParsePluralKind(value string) (Kind, error) {
	for _, kind := range Kinds {
		if kind.Plural() == value {
			return kind, nil
		}
	}

	return "", fmt.Errorf("unknown textures kind %q", value)
}

// Plural returns the name of the location where textures of this kind are kept.
// It's also a part of the public textures URL, so it must never change.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Asset is an opened stored texture. The caller is responsible for closing the File
type Asset struct {
	Kind     Kind
	Identity string
	File     io.ReadCloser
	ModTime  time.Time
}

type AssetStore interface {
	// Put replaces the asset for the (kind, identity) pair. Readers must observe either
	// the previous content or the new one, never a partially written file
	Put(ctx context.Context, kind Kind, identity string, content io.Reader) (int64, error)
	Exists(ctx context.Context, kind Kind, identity string) (bool, error)
	// List returns raw object names stored for the kind. A missing location is an empty result
	List(ctx context.Context, kind Kind) ([]string, error)
	// Find returns nil without an error when there is no asset for the pair
	Find(ctx context.Context, kind Kind, identity string) (*Asset, error)
}

type Emitter interface {
	Emit(name string, args ...interface{})
}

type StoredAsset struct {
	Identity string
	Kind     Kind
	Size     int64
}

type GalleryEntry struct {
	Identity string
	HasSkin  bool
	HasCape  bool
}

type StorageWriteError struct {
	Kind     Kind
	Identity string
	Err      error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("unable to store %s for %s: %v", e.Kind, e.Identity, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

type StorageReadError struct {
	Kind Kind
	Err  error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("unable to list %s: %v", e.Kind.Plural(), e.Err)
}

func (e *StorageReadError) Unwrap() error {
	return e.Err
}
