package di

import (
	"time"

	"github.com/defval/di"
	"github.com/mono83/slf"
	"github.com/spf13/viper"

	d "ely.by/skinbox/internal/dispatcher"
	"ely.by/skinbox/internal/eventsubscribers"
	"ely.by/skinbox/internal/http"
	"ely.by/skinbox/internal/pinger"
	"ely.by/skinbox/internal/textures"
)

var dispatcherDiOptions = di.Options(
	di.Provide(newDispatcher,
		di.As(new(d.Emitter)),
		di.As(new(d.Subscriber)),
		di.As(new(http.Emitter)),
		di.As(new(textures.Emitter)),
		di.As(new(pinger.Emitter)),
		di.As(new(eventsubscribers.Subscriber)),
	),
	di.Provide(newStorageWriteErrorChecker),
	di.Provide(newGalleryReadErrorChecker),
	di.Invoke(enableEventsHandlers),
)

func newDispatcher() d.Dispatcher {
	return d.New()
}

func enableEventsHandlers(
	dispatcher d.Subscriber,
	logger slf.Logger,
	statsReporter slf.StatsReporter,
) {
	(&eventsubscribers.Logger{Logger: logger}).ConfigureWithDispatcher(dispatcher)
	(&eventsubscribers.StatsReporter{StatsReporter: statsReporter}).ConfigureWithDispatcher(dispatcher)
}

func newStorageWriteErrorChecker(config *viper.Viper, dispatcher d.Subscriber) *namedHealthChecker {
	config.SetDefault("healthcheck.errorsResetDuration", 5*time.Minute)

	return &namedHealthChecker{
		Name:    "storage-write",
		Checker: eventsubscribers.StorageWriteErrorChecker(dispatcher, config.GetDuration("healthcheck.errorsResetDuration")),
	}
}

func newGalleryReadErrorChecker(config *viper.Viper, dispatcher d.Subscriber) *namedHealthChecker {
	config.SetDefault("healthcheck.errorsResetDuration", 5*time.Minute)

	return &namedHealthChecker{
		Name:    "gallery-read",
		Checker: eventsubscribers.GalleryReadErrorChecker(dispatcher, config.GetDuration("healthcheck.errorsResetDuration")),
	}
}
