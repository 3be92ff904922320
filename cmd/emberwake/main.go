package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/emberwake/server/internal/command"
	"github.com/emberwake/server/internal/config"
	"github.com/emberwake/server/internal/core/event"
	coresys "github.com/emberwake/server/internal/core/system"
	"github.com/emberwake/server/internal/data"
	gonet "github.com/emberwake/server/internal/net"
	"github.com/emberwake/server/internal/persist"
	"github.com/emberwake/server/internal/script"
	"github.com/emberwake/server/internal/system"
	"github.com/emberwake/server/internal/world"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Printf("\033[36;1m  │\033[0m           Emberwake  v%-8s            \033[36;1m│\033[0m\n", version)
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := 45 - len(title)
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("EMBERWAKE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Open SQLite and run migrations
	printSection("database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("SQLite opened")

	if err := persist.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("migrations applied")

	store := persist.NewStore(db)

	// 4. Load tuning tables
	printSection("data tables")

	defaults, err := data.LoadAvatarDefaults(filepath.Join(cfg.World.DataDir, "avatar_defaults.yaml"))
	if err != nil {
		return fmt.Errorf("avatar defaults: %w", err)
	}
	aliases, err := data.LoadAliasTable(filepath.Join(cfg.World.DataDir, "aliases.yaml"))
	if err != nil {
		return fmt.Errorf("alias table: %w", err)
	}
	printStat("command aliases", aliases.Count())

	// 5. Load the world
	printSection("world")

	w := world.New(log.Named("world"), store)
	if cfg.World.StartLocation != "" {
		w.SetStartLocation(script.ParseRef(cfg.World.StartLocation))
	}
	if err := w.LoadWorld(cfg.World.ModulesDir); err != nil {
		return fmt.Errorf("load world: %w", err)
	}
	w.SetAvatarTemplate(avatarTemplate(defaults))
	printStat("modules", len(w.ModuleNames()))
	printStat("startable locations", len(w.Startable()))

	w.StartWorld()
	printOK("world started")

	// 6. Command dispatcher
	dispatcher := command.NewDispatcher(w)
	for _, a := range aliases.All() {
		dispatcher.RegisterAlias(a.Verb, a.Expansion)
	}

	// 7. Network server
	netServer, err := gonet.NewServer(cfg.Network, &accountService{store: store, w: w}, log.Named("net"))
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go func() {
		if err := netServer.Serve(); err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}()

	// 8. Tick systems
	bus := event.NewBus()
	event.Subscribe(bus, func(ev event.AvatarEnteredWorld) {
		log.Info("avatar entered world", zap.String("username", ev.Username))
	})
	event.Subscribe(bus, func(ev event.AvatarLeftWorld) {
		log.Info("avatar left world", zap.String("username", ev.Username))
	})

	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, w, dispatcher, bus, log.Named("input")))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewScheduleSystem(w))
	runner.Register(system.NewOutputSystem(w))
	runner.Register(system.NewPersistSystem(w, cfg.World.AutosaveTicks))

	// 9. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	printSection("server ready")
	printReady(fmt.Sprintf("listening on %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("game loop running (tick: %s)", cfg.Network.TickRate))
	fmt.Println()

	tick := func() {
		// A scripting or dispatch panic must not take the server down.
		defer func() {
			if r := recover(); r != nil {
				log.Error("tick panicked", zap.Any("panic", r), zap.Stack("stack"))
			}
		}()
		runner.Tick(cfg.Network.TickRate)
	}

	for {
		select {
		case <-ticker.C:
			tick()
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
			w.SaveAllResidents(shutdownCtx)
			w.StopWorld()
			cancelShutdown()
			netServer.Shutdown()
			log.Info("server stopped")
			return nil
		}
	}
}

// accountService adapts the store to the HTTP layer, supplying the initial
// avatar payload on account creation.
type accountService struct {
	store *persist.Store
	w     *world.World
}

func (a *accountService) Create(ctx context.Context, username, password string) (int64, error) {
	return a.store.CreateAccount(ctx, username, password, a.w.NewAvatarRecord(username))
}

func (a *accountService) Authenticate(ctx context.Context, username, password string) (int64, error) {
	return a.store.Authenticate(ctx, username, password)
}

// avatarTemplate converts the tuning block into the record template new
// avatars are stamped from.
func avatarTemplate(d *data.AvatarDefaults) *world.AvatarRecord {
	rec := &world.AvatarRecord{
		Icon:        d.Icon,
		Level:       d.Level,
		Race:        d.Race,
		Capacity:    d.Capacity,
		TutorialsOn: d.TutorialsOn,
	}
	for _, it := range d.Items {
		count := it.Count
		if count <= 0 {
			count = 1
		}
		rec.Inventory = append(rec.Inventory, world.ItemRecord{Proto: it.Proto, Count: count})
	}
	if len(d.Skills) > 0 {
		rec.Skills = make(map[string]int, len(d.Skills))
		for _, sk := range d.Skills {
			rec.Skills[sk.Skill] = sk.Rank
		}
	}
	return rec
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
