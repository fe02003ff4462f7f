package di

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/defval/di"
	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"
	"github.com/spf13/viper"

	"ely.by/skinbox/internal/pinger"
)

var pingerDiOptions = di.Options(
	di.Provide(newPingerConfig),
	di.Provide(newPinger),
)

// newPingerConfig also understands the legacy INTERVAL_MS and URLS variables,
// the latter holding a JSON array of base URLs
func newPingerConfig(config *viper.Viper, logger slf.Logger) pinger.Config {
	config.SetDefault("pinger.interval", 30*time.Second)
	config.SetDefault("pinger.path", pinger.DefaultPath)
	config.SetDefault("pinger.timeout", 10*time.Second)

	interval := config.GetDuration("pinger.interval")
	if config.IsSet("pinger.intervalMs") {
		if ms := config.GetInt64("pinger.intervalMs"); ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		} else {
			logger.Warning("Ignoring invalid ping interval :value", wd.StringParam("value", config.GetString("pinger.intervalMs")))
		}
	}

	return pinger.Config{
		Interval: interval,
		Urls:     parsePingerUrls(config, logger),
		Path:     config.GetString("pinger.path"),
		Timeout:  config.GetDuration("pinger.timeout"),
	}
}

func parsePingerUrls(config *viper.Viper, logger slf.Logger) []string {
	raw, isString := config.Get("pinger.urls").(string)
	if !isString {
		return config.GetStringSlice("pinger.urls")
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if !strings.HasPrefix(raw, "[") {
		return strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || r == ' '
		})
	}

	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		logger.Warning("Unable to parse the list of urls to ping, pinging is disabled: :err", wd.ErrParam(err))
		return nil
	}

	return urls
}

func newPinger(config pinger.Config, client *http.Client, emitter pinger.Emitter) *pinger.Pinger {
	return &pinger.Pinger{
		Emitter: emitter,
		Config:  config,
		Client:  client,
	}
}
