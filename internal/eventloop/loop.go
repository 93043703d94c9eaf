package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Ethereal-OS/packages-modules-Uwb/internal/admission"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/clock"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/config"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/logger"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/policy"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/session"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/sink"
	"github.com/Ethereal-OS/packages-modules-Uwb/internal/uci"
)

// Sentinel errors, following the teacher's package-var sentinel style in
// internal/pfcp/node.go.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidState     = errors.New("operation not permitted in current session state")
	ErrInvalidRequest   = errors.New("structurally invalid request")
	ErrTimeout          = errors.New("UCI command timed out waiting for notification")
	ErrClosed           = errors.New("session closed while operation was in flight")
)

// Loop is the EventLoop (spec.md §4.4). A single goroutine drains jobs
// submitted via Submit, guaranteeing every session-state read-modify-write
// observed by the sink is serialized; long-running UCI command/wait
// sequences run off the loop goroutine (through runWorker on the calling
// goroutine, or on detached one-shot workers spawned by Go), so the loop
// goroutine itself is never blocked on a command deadline
// (spec.md §5: "each command handler runs on a one-shot worker and the
// loop awaits its completion with a timeout").
type Loop struct {
	table     *session.Table
	transport uci.Transport
	sink      sink.Sink
	oracle    policy.Oracle
	cfg       *config.Config
	clock     *clock.Service
	admission *admission.Controller

	jobs chan func()
	wg   sync.WaitGroup // tracks detached workers, for graceful Close

	log *logrus.Entry
}

// Deps bundles Loop's collaborators.
type Deps struct {
	Table     *session.Table
	Transport uci.Transport
	Sink      sink.Sink
	Oracle    policy.Oracle
	Config    *config.Config
	Clock     *clock.Service
	Admission *admission.Controller
}

// New constructs a Loop and starts its dispatch goroutine.
func New(deps Deps) *Loop {
	l := &Loop{
		table:     deps.Table,
		transport: deps.Transport,
		sink:      deps.Sink,
		oracle:    deps.Oracle,
		cfg:       deps.Config,
		clock:     deps.Clock,
		admission: deps.Admission,
		jobs:      make(chan func(), 256),
		log:       logger.For("eventloop"),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for fn := range l.jobs {
		fn()
	}
}

// Submit runs fn on the loop goroutine and blocks the caller until it
// completes. Used for the fast, synchronous validate/mutate steps that
// must be serialized against every other session mutation.
func (l *Loop) Submit(fn func()) {
	done := make(chan struct{})
	l.jobs <- func() {
		fn()
		close(done)
	}
	<-done
}

// Go spawns fn as a detached one-shot worker, off the loop goroutine, so
// a slow UCI command/wait sequence never blocks other events
// (spec.md §5). Tracked in l.wg so Close can drain outstanding workers.
func (l *Loop) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// Close waits for in-flight workers to finish, then stops accepting new
// jobs (any in-flight UCI command may still complete against the
// transport; spec.md §5 Cancellation). Workers may still Submit while
// they drain.
func (l *Loop) Close() {
	l.wg.Wait()
	close(l.jobs)
}

// awaitLatch waits on ch (from session.WaitLatch.Arm) until ctx expires,
// returning ErrTimeout on expiry. This is the "no sleeping on the
// EventLoop thread" suspension point from spec.md §9 — always called from
// a detached worker, never from the loop goroutine itself.
func awaitLatch(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ErrTimeout
	}
}

// deadlineCtx derives a context bounded by d, used for each per-operation
// timeout in spec.md §5.
func deadlineCtx(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// runWorker runs fn in an errgroup-managed goroutine whose context is
// derived from ctx, and blocks until fn returns; callers read fn's result
// through its closure. It's how the bounded one-shot worker from
// spec.md §5 is realized with golang.org/x/sync/errgroup instead of a
// bare goroutine plus manual WaitGroup bookkeeping.
func runWorker(ctx context.Context, fn func(context.Context) error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fn(gctx) })
	if err := g.Wait(); err != nil {
		logger.For("eventloop").WithError(err).Debug("worker returned error")
	}
}
