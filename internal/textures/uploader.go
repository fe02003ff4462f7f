package textures

import (
	"context"
	"io"

	"ely.by/skinbox/internal/identity"
)

type Uploader struct {
	Emitter
	Assets AssetStore
}

// Store normalizes the username and replaces the texture of the given kind with the provided content.
// The content isn't inspected in any way: whatever bytes are received get stored verbatim.
func (u *Uploader) Store(ctx context.Context, rawIdentity string, kind Kind, content io.Reader) (*StoredAsset, error) {
	id, err := identity.Normalize(rawIdentity)
	if err != nil {
		u.Emit("uploads:after_store", rawIdentity, kind, int64(0), err)
		return nil, err
	}

	if _, err := ParseKind(string(kind)); err != nil {
		u.Emit("uploads:after_store", id, kind, int64(0), err)
		return nil, err
	}

	u.Emit("uploads:before_store", id, kind)
	size, err := u.Assets.Put(ctx, kind, id, content)
	if err != nil {
		err = &StorageWriteError{Kind: kind, Identity: id, Err: err}
		u.Emit("uploads:after_store", id, kind, int64(0), err)

		return nil, err
	}

	u.Emit("uploads:after_store", id, kind, size, nil)

	return &StoredAsset{
		Identity: id,
		Kind:     kind,
		Size:     size,
	}, nil
}
