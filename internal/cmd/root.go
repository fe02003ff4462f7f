package cmd

import (
	"errors"
	"io/fs"
	"strings"

	. "github.com/defval/di"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ely.by/skinbox/internal/di"
	"ely.by/skinbox/internal/version"
)

var configFile string

var RootCmd = &cobra.Command{
	Use:     "skinbox",
	Short:   "Minecraft skins and capes upload server",
	Version: version.Version(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func shouldGetContainer() *Container {
	container, err := di.New()
	if err != nil {
		panic(err)
	}

	return container
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the config file (yaml, json, toml or any other format supported by viper)")
}

func initConfig() error {
	// Variables from the .env file never override the ones already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	viper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	// Legacy variables names
	_ = viper.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = viper.BindEnv("pinger.intervalMs", "PINGER_INTERVALMS", "INTERVAL_MS")
	_ = viper.BindEnv("pinger.urls", "PINGER_URLS", "URLS")

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return err
		}
	}

	return nil
}
