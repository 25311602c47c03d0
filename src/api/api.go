package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/giveaways/src/api/webserver"
	shareddata "github.com/stake-plus/giveaways/src/data"
	sharedconfig "github.com/stake-plus/giveaways/src/data/config"
	"github.com/stake-plus/giveaways/src/data/giveaways"
	"gorm.io/gorm"
)

func healthCheck(db *gorm.DB, rdb *redis.Client) webserver.HealthFunc {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		if rdb != nil {
			return rdb.Ping(ctx).Err()
		}
		return nil
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("env: %v", err)
	}

	env, err := sharedconfig.LoadEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

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

	cfg := sharedconfig.LoadAPIConfig(db, env)
	if cfg.JWTSecret == "" || cfg.AdminPasswordHash == "" {
		log.Printf("api: JWT_SECRET or DASHBOARD_ADMIN_HASH not set, login is disabled")
	}

	rdb, err := shareddata.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	router := webserver.New(cfg, giveaways.NewStore(db), healthCheck(db, rdb))
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	if useTLS {
		reloader, err := webserver.NewTLSReloader(ctx, cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			log.Fatalf("tls: %v", err)
		}
		httpSrv.TLSConfig = reloader.GetConfig()
	}

	go func() {
		var err error
		if useTLS {
			err = httpSrv.ListenAndServeTLS("", "")
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()
	log.Printf("Giveaways API listening on %s (tls=%v)", cfg.Port, useTLS)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()

	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
