package di

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/defval/di"
	"github.com/etherlabsio/healthcheck/v2"
	"github.com/gorilla/mux"
	"github.com/mono83/slf"
	"github.com/spf13/viper"

	. "ely.by/skinbox/internal/http"
)

var handlersDiOptions = di.Options(
	di.Provide(newHandlerFactory, di.As(new(http.Handler))),
	di.Provide(newSkinBoxHandler, di.WithName("skinbox")),
)

func newHandlerFactory(
	container *di.Container,
	config *viper.Viper,
	emitter Emitter,
) (*mux.Router, error) {
	// gorilla.mux has no native way to combine multiple routers,
	// so the main application router is used as the base one
	var router *mux.Router
	if err := container.Resolve(&router, di.Name("skinbox")); err != nil {
		return nil, err
	}

	requestEventsMiddleware := CreateRequestEventsMiddleware(emitter, "skinbox")
	router.Use(requestEventsMiddleware)
	// NotFoundHandler doesn't call for registered middlewares, so we must wrap it manually.
	// See https://github.com/gorilla/mux/issues/416#issuecomment-600079279
	router.NotFoundHandler = requestEventsMiddleware(http.HandlerFunc(NotFoundHandler))

	config.SetDefault("static.dir", "public")
	mount(router, "/libs/", http.FileServer(http.Dir(filepath.Join(config.GetString("static.dir"), "libs"))))

	// Resolve health checkers last, because all the services required by the application
	// must first be initialized and each of them can publish its own checkers
	var healthCheckers []*namedHealthChecker
	if has, _ := container.Has(&healthCheckers); has {
		if err := container.Resolve(&healthCheckers); err != nil {
			return nil, err
		}

		checkersOptions := make([]healthcheck.Option, len(healthCheckers))
		for i, checker := range healthCheckers {
			checkersOptions[i] = healthcheck.WithChecker(checker.Name, checker.Checker)
		}

		router.Handle("/healthcheck", healthcheck.Handler(checkersOptions...)).Methods("GET")
	}

	return router, nil
}

func newSkinBoxHandler(
	config *viper.Viper,
	uploader TexturesUploader,
	gallery GalleryLister,
	finder AssetFinder,
	logger slf.Logger,
) *mux.Router {
	config.SetDefault("app.publicUrl", "")
	config.SetDefault("uploads.maxSize", DefaultMaxUploadSize)
	config.SetDefault("customSkinLoader.name", "SkinBox")

	return (&SkinBox{
		TexturesUploader: uploader,
		GalleryLister:    gallery,
		AssetFinder:      finder,
		Logger:           logger,
		PublicUrl:        config.GetString("app.publicUrl"),
		MaxUploadSize:    config.GetInt64("uploads.maxSize"),
		LoaderName:       config.GetString("customSkinLoader.name"),
	}).Handler()
}

func mount(router *mux.Router, path string, handler http.Handler) {
	router.PathPrefix(path).Handler(
		http.StripPrefix(
			strings.TrimSuffix(path, "/"),
			handler,
		),
	)
}

type namedHealthChecker struct {
	Name    string
	Checker healthcheck.Checker
}
