package di

import (
	"github.com/defval/di"
	"github.com/spf13/viper"
)

var configDiOptions = di.Options(
	di.Provide(newConfig),
)

// The global instance is configured by the cli layer: env variables, .env and an optional config file
func newConfig() *viper.Viper {
	return viper.GetViper()
}
