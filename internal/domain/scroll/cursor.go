// Package scroll manages server-side scroll cursors: open, continue until an
// empty page, then release.
package scroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/factdex/internal/domain"
)

// DefaultTTL is the cursor keep-alive used when none is given.
const DefaultTTL = "3m"

// clearTimeout bounds the best-effort release of a cursor.
const clearTimeout = 5 * time.Second

// ErrStop ends a Run early without an error.
var ErrStop = errors.New("scroll: stop")

// State is the lifecycle stage of a cursor.
type State int

// Cursor states.
const (
	StateOpen State = iota
	StateContinued
	StateExhausted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateContinued:
		return "continued"
	case StateExhausted:
		return "exhausted"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Page is one batch of hits fetched through a cursor.
type Page struct {
	ScrollID string
	Total    int
	Hits     []domain.Hit
}

// Backend opens, advances and releases scroll cursors.
type Backend interface {
	OpenScroll(ctx context.Context, index string, body any, ttl string) (Page, error)
	ContinueScroll(ctx context.Context, scrollID, ttl string) (Page, error)
	ClearScroll(ctx context.Context, scrollIDs ...string) error
}

// Cursor is a handle to one server-side scroll context.
// A cursor is not safe for concurrent use.
type Cursor struct {
	ID  string
	TTL string

	backend  Backend
	state    State
	released bool
}

// Open starts a cursor over index and returns it together with its first page.
func Open(ctx context.Context, b Backend, index string, body any, ttl string) (*Cursor, Page, error) {
	if ttl == "" {
		ttl = DefaultTTL
	}
	page, err := b.OpenScroll(ctx, index, body, ttl)
	if err != nil {
		return nil, Page{}, fmt.Errorf("open scroll: %w", err)
	}
	c := &Cursor{ID: page.ScrollID, TTL: ttl, backend: b, state: StateOpen}
	if len(page.Hits) == 0 {
		c.state = StateExhausted
	}
	return c, page, nil
}

// State returns the current lifecycle stage.
func (c *Cursor) State() State { return c.state }

// Next fetches the following page. An empty page exhausts the cursor.
func (c *Cursor) Next(ctx context.Context) (Page, error) {
	if c.state == StateExhausted || c.state == StateAbandoned {
		return Page{}, fmt.Errorf("continue scroll: cursor %s", c.state)
	}
	page, err := c.backend.ContinueScroll(ctx, c.ID, c.TTL)
	if err != nil {
		return Page{}, fmt.Errorf("continue scroll: %w", err)
	}
	if page.ScrollID != "" {
		c.ID = page.ScrollID
	}
	c.state = StateContinued
	if len(page.Hits) == 0 {
		c.state = StateExhausted
	}
	return page, nil
}

// Close releases the server-side context. It is safe to call more than once.
// Release runs detached from ctx cancellation so an aborted enumeration still
// frees the cursor.
func (c *Cursor) Close(ctx context.Context) error {
	if c.released {
		return nil
	}
	c.released = true
	if c.state != StateExhausted {
		c.state = StateAbandoned
	}
	if c.ID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()
	if err := c.backend.ClearScroll(ctx, c.ID); err != nil {
		return fmt.Errorf("clear scroll: %w", err)
	}
	return nil
}

// Resume returns a handle to a cursor opened earlier, for example by another
// process. Its pages are fetched with Next.
func Resume(b Backend, id, ttl string) *Cursor {
	if ttl == "" {
		ttl = DefaultTTL
	}
	return &Cursor{ID: id, TTL: ttl, backend: b, state: StateContinued}
}

// Run opens a cursor and hands every fetched page to fn, including the final
// empty page. It stops after the empty page, on the first error, or when fn
// returns ErrStop. The cursor is released on every exit path; release
// failures are ignored.
func Run(ctx context.Context, b Backend, index string, body any, ttl string, fn func(Page) error) error {
	c, page, err := Open(ctx, b, index, body, ttl)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close(ctx) }()
	return drain(ctx, c, page, fn)
}

// RunFrom behaves like Run over an existing cursor id, starting with the
// page that follows the ones already consumed.
func RunFrom(ctx context.Context, b Backend, id, ttl string, fn func(Page) error) error {
	if id == "" {
		return fmt.Errorf("continue scroll: empty cursor id: %w", domain.ErrInvalidArgument)
	}
	c := Resume(b, id, ttl)
	defer func() { _ = c.Close(ctx) }()

	page, err := c.Next(ctx)
	if err != nil {
		return err
	}
	return drain(ctx, c, page, fn)
}

func drain(ctx context.Context, c *Cursor, page Page, fn func(Page) error) error {
	for {
		if err := fn(page); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
		if c.State() == StateExhausted {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		var err error
		if page, err = c.Next(ctx); err != nil {
			return err
		}
	}
}
