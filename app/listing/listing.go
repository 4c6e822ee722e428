// Package listing drives the remote-backed author listings. Each load merges
// one remote page into the local store and advances a persisted per-author
// page cursor, so incremental scrolling resumes correctly across restarts.
package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	slogctx "github.com/veqryn/slog-context"

	"github.com/weehan299/poetica/app/database"
	"github.com/weehan299/poetica/app/mapper"
	"github.com/weehan299/poetica/app/remote"
)

// LoadType names the three cursor transitions.
type LoadType int

const (
	// Refresh restarts the listing from remote page 1.
	Refresh LoadType = iota
	// Append continues forward from the persisted next page.
	Append
	// Prepend loads backwards from the persisted previous page.
	Prepend
)

func (t LoadType) String() string {
	switch t {
	case Refresh:
		return "refresh"
	case Append:
		return "append"
	case Prepend:
		return "prepend"
	default:
		return "unknown"
	}
}

// ErrNoMorePages marks a terminal no-op: the cursor says there is nothing
// further in the requested direction. Only an explicit has_next/has_prev
// signal from the remote response produces this state; a transient failure
// never does, so callers can always retry a failed load.
var ErrNoMorePages = errors.New("no more pages")

// PageSource is the slice of the remote client the engine needs.
type PageSource interface {
	GetPage(ctx context.Context, author string, page int, size int, sort string, order string) (*remote.PageResponse, error)
}

type Engine struct {
	db       database.Database
	remote   PageSource
	pageSize int

	// Serializes the cursor read/merge/write sequence per author.
	// Different authors load fully in parallel.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(db database.Database, source PageSource, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = 20
	}

	return &Engine{
		db:       db,
		remote:   source,
		pageSize: pageSize,
		locks:    map[string]*sync.Mutex{},
	}
}

// Load performs one listing transition for the author. On success the
// fetched poems are durably merged into the local store. A failed load
// leaves the cursor untouched and returns a retryable error.
func (e *Engine) Load(ctx context.Context, author string, loadType LoadType) error {
	lock := e.lockFor(author)
	lock.Lock()
	defer lock.Unlock()

	cursor, err := e.db.GetCursor(ctx, author)
	if err != nil {
		return err
	}

	var page int
	switch loadType {
	case Refresh:
		page = 1
	case Append:
		if cursor != nil {
			if cursor.NextPage == nil {
				return ErrNoMorePages
			}
			page = *cursor.NextPage
		} else {
			// Never refreshed: an append starts from the beginning.
			page = 1
		}
	case Prepend:
		if cursor == nil || cursor.PrevPage == nil {
			return ErrNoMorePages
		}
		page = *cursor.PrevPage
	default:
		return fmt.Errorf("unknown load type %v", loadType)
	}

	response, err := e.remote.GetPage(ctx, author, page, e.pageSize, "title", "asc")
	if err != nil {
		return fmt.Errorf("loading %v page %v for %q: %w", loadType, page, author, err)
	}

	poems := make([]database.Poem, 0, len(response.Poems))
	for _, p := range response.Poems {
		poems = append(poems, mapper.ToPoem(p))
	}
	if err := e.db.SavePoems(ctx, poems); err != nil {
		return err
	}

	// Each transition only moves its own side of the cursor: an append
	// must not clobber the backward position and vice versa. A refresh
	// restarts both sides.
	updated := database.PageCursor{Author: author}
	switch loadType {
	case Refresh:
		if response.HasNext {
			next := page + 1
			updated.NextPage = &next
		}
	case Append:
		if cursor != nil {
			updated.PrevPage = cursor.PrevPage
		} else if response.HasPrev && page > 1 {
			prev := page - 1
			updated.PrevPage = &prev
		}
		if response.HasNext {
			next := page + 1
			updated.NextPage = &next
		}
	case Prepend:
		updated.NextPage = cursor.NextPage
		if response.HasPrev && page > 1 {
			prev := page - 1
			updated.PrevPage = &prev
		}
	}

	if err := e.db.SetCursor(ctx, updated); err != nil {
		return err
	}

	slogctx.Debug(ctx, "listing page merged",
		"author", author, "loadType", loadType.String(), "page", page, "poems", len(poems))

	return nil
}

// Local returns the author's poems currently in the local store, in list
// order. This is what the presentation layer renders between loads.
func (e *Engine) Local(ctx context.Context, author string) ([]database.PoemMeta, error) {
	return e.db.GetMetaByAuthor(ctx, author)
}

// HasLocal reports whether the store already holds anything for the author,
// distinguishing an initially ready listing from an empty one.
func (e *Engine) HasLocal(ctx context.Context, author string) (bool, error) {
	return e.db.HasAuthor(ctx, author)
}

// Clear drops the author's pagination cursor, so the next load starts over
// from the first remote page.
func (e *Engine) Clear(ctx context.Context, author string) error {
	lock := e.lockFor(author)
	lock.Lock()
	defer lock.Unlock()

	return e.db.ClearCursor(ctx, author)
}

func (e *Engine) lockFor(author string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[author]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[author] = lock
	}
	return lock
}
