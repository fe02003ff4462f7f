package di

import (
	"os"

	"github.com/defval/di"
	"github.com/getsentry/raven-go"
	"github.com/mono83/slf"
	"github.com/mono83/slf/rays"
	"github.com/mono83/slf/recievers/sentry"
	"github.com/mono83/slf/recievers/statsd"
	"github.com/mono83/slf/recievers/writer"
	"github.com/mono83/slf/wd"
	"github.com/spf13/viper"

	"ely.by/skinbox/internal/version"
)

var loggerDiOptions = di.Options(
	di.Provide(newLogger),
	di.Provide(newSentry),
	di.Provide(newStatsReporter),
)

type loggerParams struct {
	di.Inject

	SentryRaven *raven.Client `di:"" optional:"true"`
}

func newLogger(params loggerParams) slf.Logger {
	dispatcher := &slf.Dispatcher{}
	dispatcher.AddReceiver(writer.New(writer.Options{
		Marker:     false,
		TimeFormat: "15:04:05.000",
	}))

	if params.SentryRaven != nil {
		sentryReceiver, _ := sentry.NewReceiverWithCustomRaven(
			params.SentryRaven,
			&sentry.Config{
				MinLevel: "warn",
			},
		)
		dispatcher.AddReceiver(sentryReceiver)
	}

	return wd.Custom("", "", dispatcher).WithParams(rays.Host)
}

func newSentry(config *viper.Viper) (*raven.Client, error) {
	sentryAddr := config.GetString("sentry.dsn")
	if sentryAddr == "" {
		return nil, nil
	}

	ravenClient, err := raven.New(sentryAddr)
	if err != nil {
		return nil, err
	}

	config.SetDefault("sentry.environment", "production")

	ravenClient.SetEnvironment(config.GetString("sentry.environment"))
	ravenClient.SetDefaultLoggerName("sentry-watchdog-receiver")
	ravenClient.SetRelease(version.Version())

	// raven.Recoverer only works with the DefaultClient
	raven.DefaultClient = ravenClient

	return ravenClient, nil
}

// Without statsd address the reporter has no receivers and all the metrics are discarded
func newStatsReporter(config *viper.Viper) (slf.StatsReporter, error) {
	dispatcher := &slf.Dispatcher{}

	statsdAddr := config.GetString("statsd.addr")
	if statsdAddr != "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, err
		}

		config.SetDefault("statsd.prefix", "skinbox")

		statsdReceiver, err := statsd.NewReceiver(statsd.Config{
			Address:    statsdAddr,
			Prefix:     config.GetString("statsd.prefix") + "." + hostname + ".app.",
			FlushEvery: 1,
		})
		if err != nil {
			return nil, err
		}

		dispatcher.AddReceiver(statsdReceiver)
	}

	return wd.Custom("", "", dispatcher), nil
}
