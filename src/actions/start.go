package actions

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/giveaways/src/actions/core"
	giveawaymodule "github.com/stake-plus/giveaways/src/actions/giveaway"
	sharedconfig "github.com/stake-plus/giveaways/src/data/config"
	"gorm.io/gorm"
)

// Manager is the worker's module runner.
type Manager = core.Manager

// StartAll wires up enabled action modules and starts the manager.
func StartAll(ctx context.Context, db *gorm.DB, rdb *redis.Client, env sharedconfig.Env) (*Manager, error) {
	mgr := core.NewManager()

	giveawayCfg := sharedconfig.LoadGiveawayConfig(db, env)
	log.Printf("actions: giveaway module config - Enabled: %v, Tick: %v, Redis: %v", giveawayCfg.Enabled, giveawayCfg.TickInterval, rdb != nil)
	if giveawayCfg.Enabled {
		mod, err := giveawaymodule.NewModule(&giveawayCfg, db, rdb)
		if err != nil {
			return nil, fmt.Errorf("actions: init giveaway module: %w", err)
		}
		if err := mgr.Add(mod); err != nil {
			return nil, fmt.Errorf("actions: add giveaway module: %w", err)
		}
	} else {
		log.Printf("actions: giveaway module disabled via configuration")
	}

	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}

	return mgr, nil
}
