package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"
	slogctx "github.com/veqryn/slog-context"

	"github.com/weehan299/poetica/app/config"
	"github.com/weehan299/poetica/app/database"
	"github.com/weehan299/poetica/app/remote"
	"github.com/weehan299/poetica/app/repository"
)

// Probe the remote service on an interval and record the outcome in the
// settings table. The flag is rewritten on every probe, so a single failed
// check only disables remote access until the next successful one; each
// read operation consults the flag fresh rather than caching it.
func startHealthJob(db database.Database, client *remote.Client, config *config.Config) {

	scheduler, err := gocron.NewScheduler()

	if err != nil {
		panic(fmt.Sprintf("Failed to create gocron scheduler: %v", err))
	}

	{
		_, err := scheduler.NewJob(gocron.DurationJob(config.Remote.HealthInterval()), gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			healthy := client.Health(ctx)

			if err := db.SetSetting(ctx, repository.SettingAPIEnabled, strconv.FormatBool(healthy)); err != nil {
				slogctx.Error(ctx, "failed to record remote availability", "error", err)
				return
			}

			if !healthy {
				slogctx.Warn(ctx, "remote service unhealthy, disabled until next probe")
			}
		}))

		if err != nil {
			panic(fmt.Sprintf("Failed to create gocron job: %v\n", err))
		}
	}

	scheduler.Start()
}
