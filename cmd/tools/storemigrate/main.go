// storemigrate converts a single-store schema into a store-scoped one.
// It adds store_id columns, backfills them along foreign keys, swaps
// global unique indexes for store-scoped partial ones, and enforces NOT
// NULL once the backfill verifies clean. Re-running a partial run is
// safe; each phase checks before it acts.
//
// Do not run two instances against the same schema at once.
package main

import (
	"context"
	"flag"
	"log"

	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/migrate"
	"backend/internal/store"
	"backend/internal/tenancy"
)

func main() {
	env := flag.String("env", "dev", "config environment dev/prod/test")
	defaultStore := flag.String("default-store", "", "store code that absorbs pre-existing root records")
	rollback := flag.Bool("rollback", false, "undo the schema changes instead of applying them")
	dropColumn := flag.Bool("drop-column", false, "with -rollback, also drop the store_id columns")
	dryRun := flag.Bool("dry-run", false, "print statements without executing")
	flag.Parse()

	cfg, err := config.Load(*env, "")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	db, err := infra.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	defer infra.CloseDatabase()

	ctx := context.Background()

	opts := []migrate.DirectorOption{}
	if *dryRun {
		opts = append(opts, migrate.DryRun())
	}
	if *defaultStore != "" {
		svc := store.NewService(db, tenancy.NewRegistry(), logger.Get())
		st, err := svc.FindByCode(ctx, *defaultStore)
		if err != nil {
			log.Fatalf("default store %q: %v", *defaultStore, err)
		}
		opts = append(opts, migrate.WithDefaultStore(st.ID))
	}

	director := migrate.NewDirector(db, migrate.DefaultPlan(), logger.Get(), opts...)

	if *rollback {
		if err := director.Rollback(ctx, *dropColumn); err != nil {
			log.Fatalf("rollback failed: %v", err)
		}
		log.Println("rollback complete")
		return
	}

	if err := director.Run(ctx); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("migration complete")
}
