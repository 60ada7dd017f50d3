// Package epochtick periodically advances the engine's epoch clock and
// persists a savepoint once the advance is durable, the way
// internal/storage/scheduler.go runs catalog jobs on a cron schedule,
// adapted here to a single fixed-interval tick rather than arbitrary
// per-job CRON expressions.
package epochtick

import (
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/numahash/hashkv/internal/logging"
	"github.com/numahash/hashkv/internal/savepoint"
	"github.com/numahash/hashkv/internal/xct"
)

// Ticker owns the cron schedule that advances an engine's current epoch
// every period and, immediately after, writes a savepoint marking the
// prior epoch durable.
type Ticker struct {
	cron   *cron.Cron
	clock  *xct.EpochClock
	path   string
	logger *logging.Logger

	mu      sync.Mutex
	running bool
}

// New returns a Ticker that will advance clock and persist savepoints to
// savepointPath, every spec (a 6-field CRON expression whose first field is
// seconds, e.g. "*/1 * * * * *", or a descriptor such as "@every 20ms";
// a standard 5-field expression is rejected).
func New(clock *xct.EpochClock, savepointPath string, spec string, logger *logging.Logger) (*Ticker, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Ticker{
		cron:   cron.New(cron.WithSeconds()),
		clock:  clock,
		path:   savepointPath,
		logger: logger,
	}
	if _, err := t.cron.AddFunc(spec, t.tick); err != nil {
		return nil, err
	}
	return t, nil
}

// Start begins ticking in the background.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.cron.Start()
	t.logger.Infof("epochtick: started")
}

// Stop halts ticking and waits for any in-flight tick to finish.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.running = false
	t.logger.Infof("epochtick: stopped")
}

// tick advances the current epoch, then marks the epoch just closed as
// durable and checkpoints it to disk. Ordering matters: AdvanceCurrent
// first means no transaction can still be assigned the epoch being made
// durable by the time the savepoint is written.
func (t *Ticker) tick() {
	closed := t.clock.Current()
	t.clock.AdvanceCurrent()
	t.clock.AdvanceDurable(closed)

	sp := savepoint.Savepoint{
		CurrentEpoch: t.clock.Current(),
		DurableEpoch: t.clock.Durable(),
	}
	if err := savepoint.Save(t.path, sp); err != nil {
		t.logger.Errorf("epochtick: failed to persist savepoint: %v", err)
	}
}
