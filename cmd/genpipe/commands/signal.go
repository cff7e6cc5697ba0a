package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/teranos/genpipe/logger"
)

// signalContext is cancelled on the first SIGINT or SIGTERM. A second
// signal falls through to the default handler and kills the process.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Logger.Infow("Received termination signal, cancelling run", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
