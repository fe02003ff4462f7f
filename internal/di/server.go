package di

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/defval/di"
	"github.com/getsentry/raven-go"
	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"
	"github.com/spf13/viper"
)

var serverDiOptions = di.Options(
	di.Provide(newServer),
)

type serverParams struct {
	di.Inject

	Config  *viper.Viper  `di:""`
	Handler http.Handler  `di:""`
	Logger  slf.Logger    `di:""`
	Sentry  *raven.Client `di:"" optional:"true"`
}

func newServer(params serverParams) *http.Server {
	params.Config.SetDefault("server.host", "")
	params.Config.SetDefault("server.port", 3000)
	params.Config.SetDefault("server.readTimeout", 30*time.Second)
	params.Config.SetDefault("server.writeTimeout", 30*time.Second)

	var handler http.Handler
	if params.Sentry != nil {
		// raven.Recoverer uses DefaultClient, which is replaced by the instance created in newSentry
		handler = raven.Recoverer(params.Handler)
	} else {
		// Without a panic handler the connection is just reset
		handler = http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					params.Logger.Error(
						"Panic while handling :method :path: :err",
						wd.StringParam("method", req.Method),
						wd.StringParam("path", req.URL.Path),
						wd.ErrParam(fmt.Errorf("%v", recovered)),
						wd.StringParam("stack", string(debug.Stack())),
					)
					resp.WriteHeader(http.StatusInternalServerError)
				}
			}()

			params.Handler.ServeHTTP(resp, req)
		})
	}

	address := fmt.Sprintf("%s:%d", params.Config.GetString("server.host"), params.Config.GetInt("server.port"))
	server := &http.Server{
		Addr:           address,
		ReadTimeout:    params.Config.GetDuration("server.readTimeout"),
		WriteTimeout:   params.Config.GetDuration("server.writeTimeout"),
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
		Handler:        handler,
	}

	return server
}
