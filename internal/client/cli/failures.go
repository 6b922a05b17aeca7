package cli

import (
	"context"
	"sync"

	"github.com/iudanet/shopkeeper/internal/bus"
	shopsync "github.com/iudanet/shopkeeper/internal/client/sync"
)

// failureCollector records SyncFailed events while a command waits for background fan-out
type failureCollector struct {
	sub      *bus.Subscription
	failures []shopsync.SyncFailure
	mu       sync.Mutex
}

func collectFailures(engine *shopsync.Engine) *failureCollector {
	c := &failureCollector{}
	c.sub = engine.Bus().Subscribe(bus.SyncFailed, func(_ context.Context, ev bus.Event) {
		f, ok := ev.Payload.(shopsync.SyncFailure)
		if !ok {
			return
		}
		c.mu.Lock()
		c.failures = append(c.failures, f)
		c.mu.Unlock()
	})
	return c
}

// drain waits for the engine's fan-out and returns what failed meanwhile
func (c *failureCollector) drain(engine *shopsync.Engine) []shopsync.SyncFailure {
	engine.Wait()
	c.sub.Unsubscribe()

	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]shopsync.SyncFailure(nil), c.failures...)
}

// reportFailures prints fan-out failures and turns them into an ExitWarnings error
func reportFailures(app *App, failures []shopsync.SyncFailure) error {
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		app.IO.Printf("warning: %s\n", f.String())
	}
	return warningsError(len(failures), "saved locally, some stores were not updated")
}
