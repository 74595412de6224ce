package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fanflow/internal/modkit"
	"fanflow/internal/platform/config"
	"fanflow/internal/platform/logger"
	"fanflow/internal/platform/store"

	"fanflow/internal/adapters/deliver"
	dispatchmod "fanflow/internal/services/dispatch/module"
	dispatchsvc "fanflow/internal/services/dispatch/service"
	enginemod "fanflow/internal/services/engine/module"
	enginesvc "fanflow/internal/services/engine/service"
	ratelimitmod "fanflow/internal/services/ratelimit/module"
	queuesvc "fanflow/internal/services/queue/service"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    true,
			URL:        chCfg.MustString("DBURL"),
			ClientRole: "dispatch",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		fWorkerID = flag.String("worker_id", "", "stable lease owner id (defaults to host:pid)")
		fConc     = flag.Int("concurrency", 4, "deliveries in flight at once")
		fBatch    = flag.Int("batch", 32, "claim batch size per poll")
		fTick     = flag.Duration("tick", time.Second, "poll interval")
		fLease    = flag.Duration("lease", time.Minute, "claim lease duration")
	)
	flag.Parse()

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	// Export as env so modules can also read via FromConfig
	mustSetEnv("DISPATCH_WORKER_ID", *fWorkerID)
	mustSetEnv("DISPATCH_CONCURRENCY", fmt.Sprintf("%d", *fConc))
	mustSetEnv("DISPATCH_BATCH_SIZE", fmt.Sprintf("%d", *fBatch))
	mustSetEnv("DISPATCH_TICK", fTick.String())
	mustSetEnv("DISPATCH_LEASE_FOR", fLease.String())

	deliverOpts := deliver.FromConfig(root)
	if deliverOpts.BaseURL == "" {
		l.Panic().Msg("DELIVER_URL is required")
	}

	queue := queuesvc.New(deps, queuesvc.FromConfig(root))

	limiter, err := ratelimitmod.New(deps, ratelimitmod.Options{})
	if err != nil {
		l.Panic().Err(err).Msg("rate limiter config invalid")
	}

	// only the interaction marker port is used on this side
	engine := enginemod.New(deps, enginesvc.Deps{})

	mod := dispatchmod.New(deps, dispatchsvc.Deps{
		Queue:     queue,
		Limiter:   limiter.Ports().Limiter,
		Deliverer: deliver.NewClient(deliverOpts),
		Marker:    engine.Ports().Marker,
	}, dispatchmod.Options{
		WorkerID:    *fWorkerID,
		Concurrency: *fConc,
		BatchSize:   *fBatch,
		Tick:        *fTick,
		LeaseFor:    *fLease,
	})

	if err := mod.Ports().Worker.Run(context.Background()); err != nil {
		l.Fatal().Err(err).Msg("dispatch worker failed")
	}
}
