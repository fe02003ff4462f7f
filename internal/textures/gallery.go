package textures

import (
	"context"
	"maps"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"ely.by/skinbox/internal/identity"
)

type Gallery struct {
	Emitter
	Assets AssetStore
}

// ListEntries rescans the storage on each call and returns one entry per known identity
// sorted by the identity in ascending order
func (g *Gallery) ListEntries(ctx context.Context) ([]*GalleryEntry, error) {
	owners := make([]map[string]bool, len(Kinds))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, kind := range Kinds {
		eg.Go(func() error {
			names, err := g.Assets.List(egCtx, kind)
			if err != nil {
				return &StorageReadError{Kind: kind, Err: err}
			}

			owners[i] = g.identitiesFromNames(kind, names)

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		g.Emit("gallery:after_list", 0, err)
		return nil, err
	}

	byKind := make(map[Kind]map[string]bool, len(Kinds))
	union := make(map[string]bool)
	for i, kind := range Kinds {
		byKind[kind] = owners[i]
		maps.Copy(union, owners[i])
	}

	identities := slices.Sorted(maps.Keys(union))

	entries := make([]*GalleryEntry, len(identities))
	for i, id := range identities {
		entries[i] = &GalleryEntry{
			Identity: id,
			HasSkin:  byKind[KindSkin][id],
			HasCape:  byKind[KindCape][id],
		}
	}

	g.Emit("gallery:after_list", len(entries), nil)

	return entries, nil
}

// Names come from the storage, which may contain files placed there bypassing the Uploader,
// so they pass through the same normalization as the submitted usernames
func (g *Gallery) identitiesFromNames(kind Kind, names []string) map[string]bool {
	result := make(map[string]bool, len(names))
	for _, name := range names {
		if !strings.HasSuffix(name, FileExtension) {
			continue
		}

		id, err := identity.Normalize(strings.TrimSuffix(name, FileExtension))
		if err != nil {
			g.Emit("gallery:invalid_name", kind, name, err)
			continue
		}

		result[id] = true
	}

	return result
}
