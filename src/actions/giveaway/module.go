// Package giveaway is the worker-side giveaway action: it owns the Discord
// session, the slash command and buttons, and the scheduler goroutine.
package giveaway

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/giveaways/src/actions/core"
	"github.com/stake-plus/giveaways/src/actions/giveaway/eligibility"
	"github.com/stake-plus/giveaways/src/actions/giveaway/lifecycle"
	"github.com/stake-plus/giveaways/src/actions/giveaway/scheduler"
	shareddata "github.com/stake-plus/giveaways/src/data"
	sharedconfig "github.com/stake-plus/giveaways/src/data/config"
	"github.com/stake-plus/giveaways/src/data/giveaways"
	shareddiscord "github.com/stake-plus/giveaways/src/discord"
	"gorm.io/gorm"
)

var _ core.Module = (*Module)(nil)

const leaseKey = "giveaways:scheduler:lease"

type Module struct {
	config    *sharedconfig.GiveawayConfig
	db        *gorm.DB
	rdb       *redis.Client
	session   *discordgo.Session
	handler   *Handler
	scheduler *scheduler.Scheduler
	lease     *scheduler.RedisLease
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewModule wires the store, eligibility, lifecycle and scheduler. rdb may be
// nil, in which case caches are process-local and no lease is taken.
func NewModule(cfg *sharedconfig.GiveawayConfig, db *gorm.DB, rdb *redis.Client) (*Module, error) {
	session, err := discordgo.New("Bot " + cfg.Base.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	store := giveaways.NewStore(db)

	var opts []lifecycle.Option
	if rdb != nil {
		opts = append(opts, lifecycle.WithEvents(shareddata.StreamSink{RDB: rdb, Source: "worker"}))
	}
	controller := lifecycle.NewController(store, shareddiscord.NewNotifier(session), opts...)
	ledger := lifecycle.NewLedger(store, newEvaluator(cfg, db, rdb), controller)

	module := &Module{
		config:  cfg,
		db:      db,
		rdb:     rdb,
		session: session,
		handler: &Handler{
			Controller:    controller,
			Ledger:        ledger,
			ManagerRoleID: cfg.ManagerRoleID,
		},
	}

	var locker scheduler.Locker
	if rdb != nil {
		module.lease = scheduler.NewRedisLease(rdb, leaseKey, cfg.LeaseTTL)
		locker = module.lease
	}
	module.scheduler = scheduler.New(controller, store, locker, scheduler.Config{
		Interval: cfg.TickInterval,
		Limit:    cfg.ScanLimit,
	})

	module.initHandlers()
	return module, nil
}

func newEvaluator(cfg *sharedconfig.GiveawayConfig, db *gorm.DB, rdb *redis.Client) *eligibility.Evaluator {
	levelCache := eligibility.Cache(eligibility.NewMemoryCache(cfg.CacheTTL))
	inviteCache := eligibility.Cache(eligibility.NewMemoryCache(cfg.CacheTTL))
	if rdb != nil {
		levelCache = eligibility.NewRedisCache(rdb, "giveaways:level:", cfg.CacheTTL)
		inviteCache = eligibility.NewRedisCache(rdb, "giveaways:invites:", cfg.CacheTTL)
	}
	return eligibility.NewEvaluator(
		eligibility.CachedLevels{Source: eligibility.DBLevels{DB: db}, Cache: levelCache},
		eligibility.CachedInvites{Source: eligibility.DBInvites{DB: db}, Cache: inviteCache},
	)
}

// Name implements core.Module.
func (m *Module) Name() string { return "giveaway" }

func (m *Module) initHandlers() {
	m.session.AddHandler(m.onReady)
	m.session.AddHandler(m.onInteractionCreate)
}

func (m *Module) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("giveaway: logged in as %s", s.State.User.Username)

	if err := shareddiscord.RegisterSlashCommands(s, r.User.ID, m.config.Base.GuildID, shareddiscord.CommandGiveaway); err != nil {
		log.Printf("giveaway: failed to register slash commands: %v", err)
	} else {
		log.Printf("giveaway: slash command registered")
	}
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name != shareddiscord.CommandGiveaway {
			return
		}
		m.handler.HandleSlash(s, i)
	case discordgo.InteractionMessageComponent:
		if _, _, ok := shareddiscord.ParseButtonID(i.MessageComponentData().CustomID); !ok {
			return
		}
		m.handler.HandleButton(s, i)
	}
}

func (m *Module) Start(ctx context.Context) error {
	runtimeCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if err := m.session.Open(); err != nil {
		cancel()
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		log.Printf("giveaway: scheduler started (interval=%v)", m.config.TickInterval)
		m.scheduler.Run(runtimeCtx)
	}()

	return nil
}

func (m *Module) Stop(ctx context.Context) {
	if m.cancel != nil {
		m.cancel()
	}
	// The lease must outlive the tick in flight.
	if m.done != nil {
		select {
		case <-m.done:
		case <-ctx.Done():
			log.Printf("giveaway: scheduler did not stop before shutdown deadline: %v", ctx.Err())
		}
	}
	if m.lease != nil {
		if err := m.lease.Release(ctx); err != nil {
			log.Printf("giveaway: release scheduler lease: %v", err)
		}
	}
	if m.session != nil {
		m.session.Close()
	}
}
