package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrAlreadyRunning means a loop for the account is active, the start
// request is a no-op.
var ErrAlreadyRunning = errors.New("already running")

// Factory builds the engine for one account.
type Factory func(account string) (*Engine, error)

// OverWatch owns the account control loops, at most one per account.
type OverWatch struct {
	mu      sync.Mutex
	factory Factory
	runners map[string]*runner
}

type runner struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOverWatch creates an overwatch building engines with the given factory.
func NewOverWatch(factory Factory) *OverWatch {
	return &OverWatch{
		factory: factory,
		runners: make(map[string]*runner),
	}
}

// Start launches the control loop for the account on its own goroutine.
// Starting an account that is already running reports ErrAlreadyRunning
// and leaves the running loop untouched.
func (o *OverWatch) Start(ctx context.Context, account string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.runners[account]; ok {
		log.Info().Str("account", account).Msg("already running")
		return ErrAlreadyRunning
	}

	engine, err := o.factory(account)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithCancel(ctx)
	r := &runner{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	o.runners[account] = r

	go func() {
		defer close(r.done)
		if err := engine.Run(cctx); err != nil {
			log.Error().Err(err).Str("account", account).Msg("control loop failed")
		}
		o.mu.Lock()
		delete(o.runners, account)
		o.mu.Unlock()
	}()

	log.Info().Str("account", account).Msg("control loop started")
	return nil
}

// Stop cancels the loop of the account and waits for it to drain.
// Stopping an account that is not running is a no-op.
func (o *OverWatch) Stop(account string) {
	o.mu.Lock()
	r, ok := o.runners[account]
	o.mu.Unlock()
	if !ok {
		return
	}
	r.cancel()
	<-r.done
	log.Info().Str("account", account).Msg("control loop stopped")
}

// Running reports whether a loop is active for the account.
func (o *OverWatch) Running(account string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.runners[account]
	return ok
}

// Shutdown stops every running loop and waits for all of them.
func (o *OverWatch) Shutdown() {
	o.mu.Lock()
	accounts := make([]string, 0, len(o.runners))
	for account := range o.runners {
		accounts = append(accounts, account)
	}
	o.mu.Unlock()

	for _, account := range accounts {
		o.Stop(account)
	}
}
