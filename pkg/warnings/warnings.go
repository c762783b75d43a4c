// Package warnings carries advisory, non-fatal notices such as deprecations
// from library code to whatever channel the host process uses. Notices are
// logged through slog, fanned out to subscribers on a Bus, and passed to
// registered handlers. Hosts decide per category whether notices are shown,
// dropped, or escalated to errors.
package warnings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Category classifies a warning.
type Category string

const (
	CategoryDeprecation Category = "deprecation"
	CategoryFuture      Category = "future"
	CategoryUser        Category = "user"
)

// Action is what an Emitter does with warnings of a category.
type Action string

const (
	// ActionDefault logs the warning and delivers it to subscribers and
	// handlers.
	ActionDefault Action = "default"
	// ActionIgnore drops the warning.
	ActionIgnore Action = "ignore"
	// ActionError delivers the warning and reports it back to the caller as
	// an error wrapping ErrEscalated.
	ActionError Action = "error"
)

// ErrEscalated is wrapped by the error Raise returns for categories set to
// ActionError.
var ErrEscalated = errors.New("warning escalated to error")

// Warning is a single advisory notice.
type Warning struct {
	Category Category
	Message  string
	// Docs points at documentation explaining how to act on the warning.
	Docs string
	// Source names the component that raised the warning.
	Source string
	Time   time.Time
}

// String renders the warning the way it is shown to users.
func (w Warning) String() string {
	if w.Docs == "" {
		return w.Message
	}

	return fmt.Sprintf("%s (More info at %s)", w.Message, w.Docs)
}

// Handler receives every delivered warning. A returned error is reported
// back from Raise; it does not stop delivery to other handlers.
type Handler func(ctx context.Context, w Warning) error

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger warnings are written to. A nil logger disables
// logging.
func WithLogger(log *slog.Logger) Option {
	return func(e *Emitter) { e.log = log }
}

// WithAction sets the action for a category.
func WithAction(c Category, a Action) Option {
	return func(e *Emitter) { e.actions[c] = a }
}

// WithHandler registers a handler.
func WithHandler(h Handler) Option {
	return func(e *Emitter) { e.handlers = append(e.handlers, h) }
}

// Emitter delivers warnings. It is safe for concurrent use.
type Emitter struct {
	mu       sync.RWMutex
	log      *slog.Logger
	actions  map[Category]Action
	handlers []Handler
	bus      *Bus
}

// NewEmitter creates an Emitter that logs to slog.Default() and uses
// ActionDefault for every category unless configured otherwise.
func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{
		log:     slog.Default(),
		actions: make(map[Category]Action),
		bus:     NewBus(),
	}

	for _, o := range opts {
		o(e)
	}

	return e
}

// SetAction changes the action for a category.
func (e *Emitter) SetAction(c Category, a Action) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.actions[c] = a
}

// AddHandler registers a handler.
func (e *Emitter) AddHandler(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers = append(e.handlers, h)
}

// Subscribe returns a subscription that receives every delivered warning.
func (e *Emitter) Subscribe(bufSize int) *Subscription {
	return e.bus.Subscribe(bufSize)
}

// Unsubscribe removes a subscription created by Subscribe.
func (e *Emitter) Unsubscribe(sub *Subscription) {
	e.bus.Unsubscribe(sub)
}

// Raise delivers w according to the action configured for its category.
// It never panics: panicking handlers are recovered and reported as errors.
// The returned error is informational; callers raising advisory notices are
// free to discard it.
func (e *Emitter) Raise(ctx context.Context, w Warning) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("warnings: raise panicked: %v", r)
		}
	}()

	if w.Category == "" {
		w.Category = CategoryUser
	}
	if w.Time.IsZero() {
		w.Time = time.Now()
	}

	e.mu.RLock()
	action, ok := e.actions[w.Category]
	log := e.log
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	if !ok {
		action = ActionDefault
	}

	if action == ActionIgnore {
		return nil
	}

	if log != nil {
		log.WarnContext(ctx, w.Message,
			"category", string(w.Category),
			"docs", w.Docs,
			"source", w.Source,
		)
	}

	e.bus.Publish(w)

	var errs []error
	for _, h := range handlers {
		if herr := callHandler(ctx, h, w); herr != nil {
			errs = append(errs, herr)
		}
	}

	if action == ActionError {
		errs = append([]error{fmt.Errorf("%w: %s", ErrEscalated, w)}, errs...)
	}

	return errors.Join(errs...)
}

func callHandler(ctx context.Context, h Handler, w Warning) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("warnings: handler panicked: %v", r)
		}
	}()

	return h(ctx, w)
}

var defaultEmitter atomic.Pointer[Emitter]

// Default returns the process-wide Emitter.
func Default() *Emitter {
	if e := defaultEmitter.Load(); e != nil {
		return e
	}

	defaultEmitter.CompareAndSwap(nil, NewEmitter())
	return defaultEmitter.Load()
}

// SetDefault replaces the process-wide Emitter. A nil value restores a fresh
// default.
func SetDefault(e *Emitter) {
	if e == nil {
		e = NewEmitter()
	}

	defaultEmitter.Store(e)
}

// Raise delivers w through the process-wide Emitter.
func Raise(ctx context.Context, w Warning) error {
	return Default().Raise(ctx, w)
}
