package warnings

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu  sync.Mutex
	got []Warning
}

func (r *recorder) handle(_ context.Context, w Warning) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.got = append(r.got, w)
	return nil
}

func TestWarningString(t *testing.T) {
	w := Warning{Message: "'A' is deprecated.", Docs: "https://docs.example.com/a"}
	assert.Equal(t, "'A' is deprecated. (More info at https://docs.example.com/a)", w.String())

	w.Docs = ""
	assert.Equal(t, "'A' is deprecated.", w.String())
}

func TestRaiseDeliversToHandlerAndLog(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	e := NewEmitter(
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithHandler(rec.handle),
	)

	err := e.Raise(context.Background(), Warning{
		Category: CategoryDeprecation,
		Message:  "old name",
		Docs:     "https://docs.example.com",
		Source:   "test",
	})
	require.NoError(t, err)

	require.Len(t, rec.got, 1)
	assert.Equal(t, "old name", rec.got[0].Message)
	assert.False(t, rec.got[0].Time.IsZero())

	assert.Contains(t, buf.String(), "old name")
	assert.Contains(t, buf.String(), "category=deprecation")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestRaiseDefaultsCategory(t *testing.T) {
	rec := &recorder{}
	e := NewEmitter(WithLogger(nil), WithHandler(rec.handle))

	require.NoError(t, e.Raise(context.Background(), Warning{Message: "m"}))

	require.Len(t, rec.got, 1)
	assert.Equal(t, CategoryUser, rec.got[0].Category)
}

func TestRaiseIgnore(t *testing.T) {
	rec := &recorder{}
	e := NewEmitter(
		WithLogger(nil),
		WithHandler(rec.handle),
		WithAction(CategoryDeprecation, ActionIgnore),
	)
	sub := e.Subscribe(1)
	defer e.Unsubscribe(sub)

	require.NoError(t, e.Raise(context.Background(), Warning{Category: CategoryDeprecation, Message: "m"}))

	assert.Empty(t, rec.got)
	select {
	case <-sub.C:
		t.Fatal("ignored warning was published")
	default:
	}
}

func TestRaiseEscalate(t *testing.T) {
	rec := &recorder{}
	e := NewEmitter(WithLogger(nil), WithHandler(rec.handle))
	e.SetAction(CategoryDeprecation, ActionError)

	err := e.Raise(context.Background(), Warning{Category: CategoryDeprecation, Message: "m"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEscalated)
	assert.Len(t, rec.got, 1)
}

func TestRaiseRecoversHandlerPanic(t *testing.T) {
	rec := &recorder{}
	e := NewEmitter(WithLogger(nil))
	e.AddHandler(func(context.Context, Warning) error { panic("boom") })
	e.AddHandler(rec.handle)

	var err error
	assert.NotPanics(t, func() {
		err = e.Raise(context.Background(), Warning{Message: "m"})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, rec.got, 1, "later handlers still run")
}

func TestRaiseJoinsHandlerErrors(t *testing.T) {
	errA := errors.New("a")
	e := NewEmitter(
		WithLogger(nil),
		WithHandler(func(context.Context, Warning) error { return errA }),
	)

	err := e.Raise(context.Background(), Warning{Message: "m"})

	assert.ErrorIs(t, err, errA)
}

func TestRaisePublishes(t *testing.T) {
	e := NewEmitter(WithLogger(nil))
	sub := e.Subscribe(1)
	defer e.Unsubscribe(sub)

	require.NoError(t, e.Raise(context.Background(), Warning{Message: "m"}))

	got := <-sub.C
	assert.Equal(t, "m", got.Message)
}

func TestDefaultEmitter(t *testing.T) {
	rec := &recorder{}
	SetDefault(NewEmitter(WithLogger(nil), WithHandler(rec.handle)))
	t.Cleanup(func() { SetDefault(nil) })

	require.NoError(t, Raise(context.Background(), Warning{Message: "m"}))

	assert.Len(t, rec.got, 1)
	assert.NotNil(t, Default())
}
