package di

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/defval/di"
)

var contextDiOptions = di.Options(
	di.Provide(newBaseContext),
)

// The context is cancelled on the first stop signal, which starts the graceful shutdown
func newBaseContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return ctx
}
