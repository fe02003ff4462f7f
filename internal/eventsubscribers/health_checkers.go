package eventsubscribers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/etherlabsio/healthcheck/v2"

	"ely.by/skinbox/internal/textures"
)

type Pingable interface {
	Ping(ctx context.Context) error
}

func StorageChecker(storage Pingable) healthcheck.CheckerFunc {
	return func(ctx context.Context) error {
		done := make(chan error, 1)
		go func() {
			done <- storage.Ping(ctx)
		}()

		select {
		case <-ctx.Done():
			return errors.New("check timeout")
		case err := <-done:
			return err
		}
	}
}

// StorageWriteErrorChecker reports the last storage write failure until resetDuration passes
// or the next successful upload happens
func StorageWriteErrorChecker(dispatcher Subscriber, resetDuration time.Duration) healthcheck.CheckerFunc {
	errHolder := &expiringErrHolder{D: resetDuration}
	dispatcher.Subscribe("uploads:after_store", func(id string, kind textures.Kind, size int64, err error) {
		var writeErr *textures.StorageWriteError
		if err == nil {
			errHolder.Set(nil)
		} else if errors.As(err, &writeErr) {
			errHolder.Set(err)
		}
	})

	return func(ctx context.Context) error {
		return errHolder.Get()
	}
}

// GalleryReadErrorChecker reports the last failure to list stored textures until resetDuration passes
func GalleryReadErrorChecker(dispatcher Subscriber, resetDuration time.Duration) healthcheck.CheckerFunc {
	errHolder := &expiringErrHolder{D: resetDuration}
	dispatcher.Subscribe("gallery:after_list", func(count int, err error) {
		errHolder.Set(err)
	})

	return func(ctx context.Context) error {
		return errHolder.Get()
	}
}

type expiringErrHolder struct {
	D   time.Duration
	err error
	l   sync.Mutex
	t   *time.Timer
}

func (h *expiringErrHolder) Get() error {
	h.l.Lock()
	defer h.l.Unlock()

	return h.err
}

func (h *expiringErrHolder) Set(err error) {
	h.l.Lock()
	defer h.l.Unlock()
	if h.t != nil {
		h.t.Stop()
		h.t = nil
	}

	h.err = err
	if err != nil {
		h.t = time.AfterFunc(h.D, func() {
			h.Set(nil)
		})
	}
}
