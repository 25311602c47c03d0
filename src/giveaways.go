package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/stake-plus/giveaways/src/actions"
	shareddata "github.com/stake-plus/giveaways/src/data"
	sharedconfig "github.com/stake-plus/giveaways/src/data/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("env: %v", err)
	}

	env, err := sharedconfig.LoadEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Use a single DB connection for all modules
	if env.MySQLDSN == "" {
		log.Fatalf("db: MYSQL_DSN is not set")
	}
	db, err := shareddata.ConnectMySQL(env.MySQLDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := shareddata.Migrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base := sharedconfig.LoadBase(db, env)
	rdb, err := shareddata.ConnectRedis(ctx, base.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if rdb == nil {
		log.Printf("redis: not configured, using in-process caches and no scheduler lease")
	} else {
		defer rdb.Close()
	}

	manager, err := actions.StartAll(ctx, db, rdb, env)
	if err != nil {
		log.Fatalf("actions start: %v", err)
	}

	// Wait for termination
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	manager.Stop(ctx)
}
