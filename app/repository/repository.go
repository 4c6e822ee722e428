// Package repository is the synchronization façade over the bundled poem
// database, the remote poetry API and the in-memory caches. Reads are
// local-first; remote results are merged back into the local store so the
// corpus grows over time; every remote failure degrades to a local answer.
package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/singleflight"

	"github.com/weehan299/poetica/app/cache"
	"github.com/weehan299/poetica/app/database"
	"github.com/weehan299/poetica/app/mapper"
	"github.com/weehan299/poetica/app/remote"
)

// RemoteSource is the subset of the remote client the repository needs.
// Tests substitute it to prove no remote call happens on local hits.
type RemoteSource interface {
	Search(ctx context.Context, query string, poemLimit int) (*remote.SearchResponse, error)
	GetPoem(ctx context.Context, id string) (*remote.Poem, error)
	GetRandom(ctx context.Context) (*remote.Poem, error)
}

// Settings keys consulted before every remote attempt. Both are read fresh
// from the settings table at each decision point, never snapshotted: the
// health check may flip api_enabled at any time, and a transient failure
// must not disable remote access for the rest of the session.
const (
	SettingUseRemote  = "use_remote"
	SettingAPIEnabled = "api_enabled"
)

// ErrSuperseded is returned when a newer Search call was started before
// this one completed. The caller should simply drop the result; the newer
// query's result is the one to show.
var ErrSuperseded = errors.New("search superseded by a newer query")

// How many poem results to request from the remote search endpoint.
const remotePoemLimit = 50

type Repository struct {
	db     database.Database
	remote RemoteSource
	cache  *cache.PoemCache

	searchTimeout time.Duration

	// Deduplicates concurrent full-content fetches for the same id.
	fetches singleflight.Group

	// Monotonic search generation for last-query-wins semantics.
	searchGen atomic.Uint64
}

func New(db database.Database, remoteSource RemoteSource, poemCache *cache.PoemCache, searchTimeout time.Duration) *Repository {
	if searchTimeout <= 0 {
		searchTimeout = 60 * time.Second
	}

	return &Repository{
		db:            db,
		remote:        remoteSource,
		cache:         poemCache,
		searchTimeout: searchTimeout,
	}
}

// remoteAllowed reports whether remote access is currently permitted:
// the user-level switch AND the health-check-maintained availability flag.
func (r *Repository) remoteAllowed(ctx context.Context) bool {
	use, err := r.db.GetSetting(ctx, SettingUseRemote)
	if err != nil || use != "true" {
		return false
	}

	enabled, err := r.db.GetSetting(ctx, SettingAPIEnabled)
	return err == nil && enabled == "true"
}

// GetPoem resolves a poem id: local store, then the recent-content cache,
// then (if permitted) the remote API. A local hit that looks like a
// truncated preview is upgraded in place before being returned. Returns
// (nil, nil) when the id is unknown everywhere.
func (r *Repository) GetPoem(ctx context.Context, id string) (*database.Poem, error) {
	poem, err := r.db.GetPoem(ctx, id)
	if err != nil {
		return nil, err
	}

	if poem != nil {
		if IsPreview(*poem) && r.remoteAllowed(ctx) {
			return r.upgrade(ctx, *poem)
		}
		return poem, nil
	}

	if cached, ok := r.cache.Recent(id); ok {
		return &cached, nil
	}

	if !r.remoteAllowed(ctx) {
		return nil, nil
	}

	fetched, err := r.fetchRemote(ctx, id)
	if err != nil {
		// Absent locally and unreachable remotely is a plain miss,
		// not a user-facing failure.
		slogctx.Warn(ctx, "remote lookup failed", "id", id, "error", err)
		return nil, nil
	}

	r.cache.PutRecent(*fetched)
	if err := r.db.SavePoems(ctx, []database.Poem{*fetched}); err != nil {
		return nil, err
	}

	return fetched, nil
}

// upgrade refetches the full content for a poem that classified as a
// preview. On any failure the original preview is returned unchanged.
func (r *Repository) upgrade(ctx context.Context, poem database.Poem) (*database.Poem, error) {
	full, err := r.fetchRemote(ctx, poem.ID)
	if err != nil {
		slogctx.Warn(ctx, "content upgrade failed, returning preview", "id", poem.ID, "error", err)
		return &poem, nil
	}

	r.cache.PutRecent(*full)
	if err := r.db.SavePoems(ctx, []database.Poem{*full}); err != nil {
		return nil, err
	}

	return full, nil
}

func (r *Repository) fetchRemote(ctx context.Context, id string) (*database.Poem, error) {
	value, err, _ := r.fetches.Do(id, func() (any, error) {
		return r.remote.GetPoem(ctx, id)
	})

	if err != nil {
		return nil, err
	}

	poem := mapper.ToPoem(*value.(*remote.Poem))
	return &poem, nil
}

// GetMeta serves list-view metadata, preferring the metadata cache.
func (r *Repository) GetMeta(ctx context.Context, id string) (*database.PoemMeta, error) {
	if meta, ok := r.cache.Meta(id); ok {
		return &meta, nil
	}

	poem, err := r.db.GetPoem(ctx, id)
	if err != nil || poem == nil {
		return nil, err
	}

	meta := metaOf(*poem)
	r.cache.PutMeta([]database.PoemMeta{meta})
	return &meta, nil
}

type AuthorResult struct {
	database.AuthorSummary
	Score float64 `json:"score"`
}

// SearchResults carries mixed poem and author results for one query.
type SearchResults struct {
	Hits    []mapper.SearchHit `json:"hits"`
	Authors []AuthorResult     `json:"authors"`
	// True when the remote service answered this query; false means the
	// results came from the local corpus only.
	FromRemote bool `json:"fromRemote"`
}

// Search runs a mixed poem+author search. When remote access is permitted,
// the remote API is asked first under the operation timeout; an empty
// answer, an error, or the timeout all fall back to a local search. A call
// superseded by a newer query returns ErrSuperseded and its remote result
// is discarded rather than merged (last-query-wins).
func (r *Repository) Search(ctx context.Context, query string) (*SearchResults, error) {
	gen := r.searchGen.Add(1)

	if r.remoteAllowed(ctx) {
		rctx, cancel := context.WithTimeout(ctx, r.searchTimeout)
		response, err := r.remote.Search(rctx, query, remotePoemLimit)
		cancel()

		if r.searchGen.Load() != gen {
			return nil, ErrSuperseded
		}

		if err == nil && len(response.Poems) > 0 {
			return r.mergeRemote(ctx, query, response), nil
		}

		if err != nil {
			slogctx.Warn(ctx, "remote search failed, falling back to local", "query", query, "error", err)
		}
	}

	return r.searchLocal(ctx, query, gen)
}

func (r *Repository) mergeRemote(ctx context.Context, query string, response *remote.SearchResponse) *SearchResults {
	hits := make([]mapper.SearchHit, 0, len(response.Poems))
	meta := make([]database.PoemMeta, 0, len(response.Poems))

	for _, p := range response.Poems {
		hit := mapper.ToSearchHit(p, query)
		hits = append(hits, hit)
		meta = append(meta, metaOf(hit.Poem))
	}

	mapper.SortHits(hits)
	r.cache.PutMeta(meta)

	// Author results merge the remote answer with the local aggregation;
	// the local count wins when both know the author, since merged pages
	// make the local corpus the more complete source over time.
	counts := map[string]int{}
	for _, a := range response.Authors {
		counts[a.Name] = a.PoemCount
	}
	if local, err := r.db.SearchAuthors(ctx, query); err == nil {
		for _, a := range local {
			counts[a.Name] = a.PoemCount
		}
	}

	return &SearchResults{
		Hits:       hits,
		Authors:    scoreAuthors(counts, query),
		FromRemote: true,
	}
}

func (r *Repository) searchLocal(ctx context.Context, query string, gen uint64) (*SearchResults, error) {
	poems, err := r.db.SearchPoems(ctx, query)
	if err != nil {
		return nil, err
	}

	hits := make([]mapper.SearchHit, 0, len(poems))
	for _, poem := range poems {
		hits = append(hits, mapper.ScoreLocal(poem, query))
	}
	mapper.SortHits(hits)

	authors, err := r.db.SearchAuthors(ctx, query)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, a := range authors {
		counts[a.Name] = a.PoemCount
	}

	if r.searchGen.Load() != gen {
		return nil, ErrSuperseded
	}

	return &SearchResults{
		Hits:    hits,
		Authors: scoreAuthors(counts, query),
	}, nil
}

func scoreAuthors(counts map[string]int, query string) []AuthorResult {
	names := maps.Keys(counts)

	results := make([]AuthorResult, 0, len(names))
	for _, name := range names {
		results = append(results, AuthorResult{
			AuthorSummary: database.AuthorSummary{Name: name, PoemCount: counts[name]},
			Score:         mapper.ScoreAuthor(name, query, counts[name]),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})

	return results
}

// AddUserPoem stores a poem entered by the user and returns it.
func (r *Repository) AddUserPoem(ctx context.Context, title string, author string, content string) (*database.Poem, error) {
	poem := database.Poem{
		ID:         "user_" + uuid.New().String(),
		Title:      title,
		Author:     author,
		Content:    content,
		FirstLine:  database.FirstLine(content),
		SourceType: database.SourceUser,
	}

	if err := r.db.SavePoems(ctx, []database.Poem{poem}); err != nil {
		return nil, err
	}

	return &poem, nil
}

// DeletePoem removes a poem and drops it from both cache tiers.
func (r *Repository) DeletePoem(ctx context.Context, id string) error {
	if err := r.db.DeletePoem(ctx, id); err != nil {
		return err
	}

	r.cache.Forget(id)
	return nil
}

func metaOf(poem database.Poem) database.PoemMeta {
	return database.PoemMeta{
		ID:         poem.ID,
		Title:      poem.Title,
		Author:     poem.Author,
		FirstLine:  poem.FirstLine,
		SourceType: poem.SourceType,
		WordCount:  len(strings.Fields(poem.Content)),
	}
}
