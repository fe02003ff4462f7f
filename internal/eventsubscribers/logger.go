package eventsubscribers

import (
	"errors"
	"net"
	"net/http"

	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"

	"ely.by/skinbox/internal/identity"
	"ely.by/skinbox/internal/textures"
)

type Subscriber interface {
	Subscribe(topic string, fn interface{})
}

type Logger struct {
	slf.Logger
}

func (l *Logger) ConfigureWithDispatcher(d Subscriber) {
	d.Subscribe("skinbox:after_request", l.handleAfterRequest)
	d.Subscribe("uploads:after_store", l.handleAfterStore)
	d.Subscribe("gallery:after_list", l.handleAfterList)
	d.Subscribe("gallery:invalid_name", l.handleInvalidName)
	d.Subscribe("pinger:after_ping", l.handleAfterPing)
}

func (l *Logger) handleAfterRequest(req *http.Request, statusCode int) {
	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	l.Info(
		":ip - - \":method :path\" :statusCode - \":userAgent\" \":forwardedIp\"",
		wd.StringParam("ip", trimPort(req.RemoteAddr)),
		wd.StringParam("method", req.Method),
		wd.StringParam("path", path),
		wd.IntParam("statusCode", statusCode),
		wd.StringParam("userAgent", req.UserAgent()),
		wd.StringParam("forwardedIp", req.Header.Get("X-Forwarded-For")),
	)
}

func (l *Logger) handleAfterStore(id string, kind textures.Kind, size int64, err error) {
	if err == nil {
		l.Info(
			"Stored :kind for :identity, :size bytes",
			wd.StringParam("kind", string(kind)),
			wd.StringParam("identity", id),
			wd.IntParam("size", int(size)),
		)

		return
	}

	var writeErr *textures.StorageWriteError
	if errors.As(err, &writeErr) {
		l.Error("Unable to store the upload: :err", wd.ErrParam(err))
		return
	}

	var identityErr *identity.InvalidIdentityError
	if errors.As(err, &identityErr) {
		l.Debug("Upload rejected: :err", wd.ErrParam(err))
		return
	}

	l.Warning("Upload rejected: :err", wd.ErrParam(err))
}

func (l *Logger) handleAfterList(count int, err error) {
	if err != nil {
		l.Error("Unable to read the gallery: :err", wd.ErrParam(err))
	}
}

func (l *Logger) handleInvalidName(kind textures.Kind, name string, err error) {
	l.Warning(
		"Skipped :kind file :name that doesn't match a valid username: :err",
		wd.StringParam("kind", string(kind)),
		wd.NameParam(name),
		wd.ErrParam(err),
	)
}

func (l *Logger) handleAfterPing(url string, statusCode int, err error) {
	if err != nil {
		l.Warning("Health check ping to :url failed: :err", wd.StringParam("url", url), wd.ErrParam(err))
		return
	}

	l.Info("Pinged :url, status :statusCode", wd.StringParam("url", url), wd.IntParam("statusCode", statusCode))
}

func trimPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}
