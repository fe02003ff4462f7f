package di

import (
	"net/http"
	"time"

	"github.com/defval/di"
	"github.com/spf13/viper"
)

var httpClientDiOptions = di.Options(
	di.Provide(newHttpClient),
)

func newHttpClient(config *viper.Viper) *http.Client {
	config.SetDefault("httpClient.timeout", 30*time.Second)

	return &http.Client{
		Timeout: config.GetDuration("httpClient.timeout"),
	}
}
