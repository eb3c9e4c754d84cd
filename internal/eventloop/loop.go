package eventloop

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/padhost/internal/groutine"
)

type ctxKey string

const loopNameKey ctxKey = "event_loop_name"

// Loop is the single serialized event-delivery context. Every callback posted to
// it runs on one goroutine, one at a time, in posting order.
type Loop struct {
	name    string
	mailbox *Mailbox
	logger  *logrus.Logger
	done    chan struct{}
}

// New creates a loop with a mailbox of the given capacity.
func New(name string, capacity int, logger *logrus.Logger) *Loop {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loop{
		name:    name,
		mailbox: NewMailbox(capacity),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Mailbox exposes the loop's mailbox.
func (l *Loop) Mailbox() *Mailbox {
	return l.mailbox
}

// Post enqueues fn to run on the loop.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	return l.mailbox.Post(ctx, fn)
}

// Call runs fn on the loop and waits for it to finish.
// It must not be called from the loop itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.mailbox.Post(ctx, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop has stopped.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Start runs the loop on a new goroutine labelled with the loop name until ctx is cancelled.
func (l *Loop) Start(ctx context.Context) {
	groutine.Go(ctx, l.name, func(ctx context.Context) {
		l.Run(context.WithValue(ctx, loopNameKey, l.name))
	})
}

// Run processes callbacks on the calling goroutine until ctx is cancelled.
// Callbacks still queued at cancellation are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	defer l.mailbox.close()

	l.logger.WithField("loop", l.name).Debug("Event loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.WithFields(logrus.Fields{
				"loop":    l.name,
				"pending": l.mailbox.Len(),
			}).Debug("Event loop stopped")
			return
		case fn := <-l.mailbox.ch:
			l.dispatch(fn)
		}
	}
}

func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.mailbox.metrics.addPanic()
			l.logger.WithFields(logrus.Fields{
				"loop":  l.name,
				"panic": r,
			}).Error("Event callback panic")
		}
	}()
	fn()
	l.mailbox.metrics.addProcessed()
}

// Name returns the loop name stored in ctx by Start, or "".
func Name(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(loopNameKey).(string); ok {
		return v
	}
	return ""
}
