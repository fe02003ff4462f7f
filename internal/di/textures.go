package di

import (
	"github.com/defval/di"

	"ely.by/skinbox/internal/http"
	"ely.by/skinbox/internal/textures"
)

var texturesDiOptions = di.Options(
	di.Provide(newUploader, di.As(new(http.TexturesUploader))),
	di.Provide(newGallery, di.As(new(http.GalleryLister))),
)

func newUploader(emitter textures.Emitter, assets textures.AssetStore) *textures.Uploader {
	return &textures.Uploader{
		Emitter: emitter,
		Assets:  assets,
	}
}

func newGallery(emitter textures.Emitter, assets textures.AssetStore) *textures.Gallery {
	return &textures.Gallery{
		Emitter: emitter,
		Assets:  assets,
	}
}
