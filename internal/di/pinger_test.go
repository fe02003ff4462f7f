package di

import (
	"testing"
	"time"

	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"ely.by/skinbox/internal/pinger"
)

func TestNewPingerConfig(t *testing.T) {
	logger := wd.Custom("", "", &slf.Dispatcher{})

	t.Run("defaults", func(t *testing.T) {
		config := newPingerConfig(viper.New(), logger)
		require.Equal(t, 30*time.Second, config.Interval)
		require.Equal(t, pinger.DefaultPath, config.Path)
		require.Equal(t, 10*time.Second, config.Timeout)
		require.Empty(t, config.Urls)
	})

	t.Run("legacy interval in milliseconds", func(t *testing.T) {
		v := viper.New()
		v.Set("pinger.interval", "1m")
		v.Set("pinger.intervalMs", "1500")

		config := newPingerConfig(v, logger)
		require.Equal(t, 1500*time.Millisecond, config.Interval)
	})

	t.Run("invalid legacy interval is ignored", func(t *testing.T) {
		v := viper.New()
		v.Set("pinger.interval", "1m")
		v.Set("pinger.intervalMs", "0")

		config := newPingerConfig(v, logger)
		require.Equal(t, time.Minute, config.Interval)
	})

	t.Run("urls as json array", func(t *testing.T) {
		v := viper.New()
		v.Set("pinger.urls", `["https://a.example.com", "https://b.example.com"]`)

		config := newPingerConfig(v, logger)
		require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, config.Urls)
	})

	t.Run("urls as comma separated list", func(t *testing.T) {
		v := viper.New()
		v.Set("pinger.urls", "https://a.example.com, https://b.example.com")

		config := newPingerConfig(v, logger)
		require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, config.Urls)
	})

	t.Run("urls from config file list", func(t *testing.T) {
		v := viper.New()
		v.Set("pinger.urls", []interface{}{"https://a.example.com"})

		config := newPingerConfig(v, logger)
		require.Equal(t, []string{"https://a.example.com"}, config.Urls)
	})

	t.Run("malformed json disables pinging", func(t *testing.T) {
		v := viper.New()
		v.Set("pinger.urls", `["https://a.example.com"`)

		config := newPingerConfig(v, logger)
		require.Empty(t, config.Urls)
	})
}
