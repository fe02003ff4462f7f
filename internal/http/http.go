package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"
)

type Emitter interface {
	Emit(name string, args ...interface{})
}

func StartServer(ctx context.Context, server *http.Server, logger slf.Logger) {
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("Starting the server, HTTP on: :addr", wd.StringParam("addr", server.Addr))
		srvErr <- server.ListenAndServe()
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Error in the server: :err", wd.ErrParam(err))
		}
	case <-ctx.Done():
		logger.Info("Got stop signal, starting graceful shutdown")

		stopCtx, cancelFunc := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancelFunc()

		_ = server.Shutdown(stopCtx)

		logger.Info("Graceful shutdown succeed, exiting")
	}
}

// CreateRequestEventsMiddleware emits {prefix}:before_request before the request is handled
// and {prefix}:after_request with the written status code after it
func CreateRequestEventsMiddleware(emitter Emitter, prefix string) mux.MiddlewareFunc {
	beforeTopic := prefix + ":before_request"
	afterTopic := prefix + ":after_request"

	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			emitter.Emit(beforeTopic, req)

			statusResp := &statusCapturingResponseWriter{ResponseWriter: resp, statusCode: http.StatusOK}
			handler.ServeHTTP(statusResp, req)

			emitter.Emit(afterTopic, req, statusResp.statusCode)
		})
	}
}

type statusCapturingResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusCapturingResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}

	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusCapturingResponseWriter) Write(data []byte) (int, error) {
	w.wroteHeader = true

	return w.ResponseWriter.Write(data)
}

// Unwrap lets http.ResponseController reach the original writer
func (w *statusCapturingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func NotFoundHandler(response http.ResponseWriter, _ *http.Request) {
	data, _ := json.Marshal(map[string]string{
		"status":  "404",
		"message": "Not Found",
	})

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusNotFound)
	_, _ = response.Write(data)
}

func apiBadRequest(resp http.ResponseWriter, errorsPerField map[string][]string) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(http.StatusBadRequest)
	result, _ := json.Marshal(map[string]any{
		"errors": errorsPerField,
	})
	_, _ = resp.Write(result)
}

func apiResponse(resp http.ResponseWriter, statusCode int, body any) {
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(statusCode)
	result, _ := json.Marshal(body)
	_, _ = resp.Write(result)
}

var internalServerError = []byte("Internal server error")

func apiServerError(resp http.ResponseWriter, logger slf.Logger, err error) {
	logger.Error("Unexpected error during the request handling: :err", wd.ErrParam(err))

	resp.Header().Set("Content-Type", "text/plain")
	resp.WriteHeader(http.StatusInternalServerError)
	_, _ = resp.Write(internalServerError)
}
