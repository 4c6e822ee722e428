package main

import (
	"context"
	"fmt"
	"strconv"

	slogctx "github.com/veqryn/slog-context"

	"github.com/weehan299/poetica/app/cache"
	"github.com/weehan299/poetica/app/config"
	"github.com/weehan299/poetica/app/database"
	"github.com/weehan299/poetica/app/listing"
	"github.com/weehan299/poetica/app/remote"
	"github.com/weehan299/poetica/app/repository"
	"github.com/weehan299/poetica/app/server"
)

func main() {

	// Load configuration
	config, err := config.Read()

	if err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	ctx := context.Background()

	db, err := database.SQLiteFromFile(config.DB.Path)
	if err != nil {
		panic(fmt.Sprintf("Error opening SQLite database: %v", err))
	}

	{
		// Create DB tables if they don't exist (and set SQLite to WAL mode)
		err := db.Setup(ctx)

		if err != nil {
			panic(fmt.Sprintf("Failed to set up database: %v", err))
		}
	}

	seedIfEmpty(ctx, db, config)
	applySettings(ctx, db, config)

	remoteClient, err := remote.New(config.Remote.BaseURL, config.Remote.Timeout(), config.Remote.Speed)
	if err != nil {
		panic(fmt.Sprintf("Invalid remote configuration: %v", err))
	}

	poemCache := cache.NewPoemCache()
	repo := repository.New(db, remoteClient, poemCache, config.Remote.SearchTimeout())
	engine := listing.New(db, remoteClient, config.Remote.PageSize)

	// Probe the remote service periodically and record its availability
	go startHealthJob(db, remoteClient, config)

	// Create an API server
	server.Start(repo, engine, db, config)
}

// seedIfEmpty loads the shipped poem bundle into a fresh database.
func seedIfEmpty(ctx context.Context, db database.Database, config *config.Config) {
	if config.DB.Bundle == "" {
		return
	}

	count, err := db.CountPoems(ctx)
	if err != nil {
		panic(fmt.Sprintf("Failed to count poems: %v", err))
	}
	if count > 0 {
		return
	}

	loaded, err := database.SeedFromJSON(ctx, db, config.DB.Bundle)
	if err != nil {
		panic(fmt.Sprintf("Failed to seed database from %v: %v", config.DB.Bundle, err))
	}

	slogctx.Info(ctx, "seeded database from bundle", "path", config.DB.Bundle, "poems", loaded)
}

// applySettings writes the configured remote switch into the settings table
// and enables the availability flag optimistically; the health check takes
// over from there.
func applySettings(ctx context.Context, db database.Database, config *config.Config) {
	if err := db.SetSetting(ctx, repository.SettingUseRemote, strconv.FormatBool(config.Remote.UseRemote)); err != nil {
		panic(fmt.Sprintf("Failed to store settings: %v", err))
	}

	if err := db.SetSetting(ctx, repository.SettingAPIEnabled, "true"); err != nil {
		panic(fmt.Sprintf("Failed to store settings: %v", err))
	}
}
