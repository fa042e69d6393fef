package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alterra-community/alterra-bot/internal/channels/discord"
	"github.com/alterra-community/alterra-bot/internal/commands"
	"github.com/alterra-community/alterra-bot/internal/components"
	"github.com/alterra-community/alterra-bot/internal/config"
	"github.com/alterra-community/alterra-bot/internal/guilds"
	. "github.com/alterra-community/alterra-bot/internal/logging"
)

const version = "0.1.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("alterra-bot %s\n", version)
		return
	}

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "alterra-bot: %v\n", err)
		os.Exit(1)
	}

	Init(&Config{
		Level:      ParseLevel(cfg.LogLevel),
		TimeFormat: "15:04:05",
	})
	L_info("alterra-bot %s starting", version)

	store := guilds.NewStore(cfg.GuildConfigPath, cfg.ConfigBackups)
	if err := store.Load(); err != nil {
		L_fatal("failed to load guild config: %v", err)
	}

	manager := commands.NewManager()
	workflow := commands.NewWorkflow(store, cfg.PublishMode)
	if err := commands.RegisterSetup(manager, workflow); err != nil {
		L_fatal("failed to register commands: %v", err)
	}

	registry := components.NewRegistry()
	if err := components.RegisterVerify(registry); err != nil {
		L_fatal("failed to register controls: %v", err)
	}

	bot, err := discord.New(cfg, manager, registry)
	if err != nil {
		L_fatal("failed to create discord bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WatchConfig {
		watcher, err := guilds.NewWatcher(store)
		if err != nil {
			L_fatal("failed to create config watcher: %v", err)
		}
		if err := watcher.Start(ctx); err != nil {
			L_fatal("failed to start config watcher: %v", err)
		}
		defer watcher.Close()
	}

	if err := bot.Start(); err != nil {
		L_fatal("failed to start bot: %v", err)
	}
	L_info("alterra-bot ready")

	<-ctx.Done()
	SetShuttingDown()
	bot.Stop()
}
