package repository

import (
	"context"
	"math/rand"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/weehan299/poetica/app/database"
	"github.com/weehan299/poetica/app/mapper"
)

// PoemOfTheDay returns the deterministic daily pick for today.
func (r *Repository) PoemOfTheDay(ctx context.Context) (*database.Poem, error) {
	return r.PoemForDate(ctx, time.Now())
}

// PoemForDate selects the poem for a calendar date. The selection is seeded
// by the date alone, so every caller sees the same poem on the same day
// without any stored state. Only an empty local store falls back to the
// remote random endpoint.
func (r *Repository) PoemForDate(ctx context.Context, date time.Time) (*database.Poem, error) {
	count, err := r.db.CountPoems(ctx)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		return r.randomRemote(ctx)
	}

	index := rand.New(rand.NewSource(dailySeed(date))).Intn(count)

	id, err := r.db.PoemIDAt(ctx, index)
	if err != nil {
		return nil, err
	}

	return r.GetPoem(ctx, id)
}

func (r *Repository) randomRemote(ctx context.Context) (*database.Poem, error) {
	if !r.remoteAllowed(ctx) {
		return nil, nil
	}

	fetched, err := r.remote.GetRandom(ctx)
	if err != nil {
		slogctx.Warn(ctx, "remote random poem failed", "error", err)
		return nil, nil
	}

	poem := mapper.ToPoem(*fetched)
	r.cache.PutRecent(poem)
	if err := r.db.SavePoems(ctx, []database.Poem{poem}); err != nil {
		return nil, err
	}

	return &poem, nil
}

func dailySeed(date time.Time) int64 {
	return int64(date.Year())*1000 + int64(date.YearDay())
}
