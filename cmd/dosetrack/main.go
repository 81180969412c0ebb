package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/gmsas95/dosetrack/internal/api"
	"github.com/gmsas95/dosetrack/internal/channels/discord"
	"github.com/gmsas95/dosetrack/internal/channels/telegram"
	"github.com/gmsas95/dosetrack/internal/cli"
	"github.com/gmsas95/dosetrack/internal/config"
	"github.com/gmsas95/dosetrack/internal/ledger"
	"github.com/gmsas95/dosetrack/internal/reminder"
	"github.com/gmsas95/dosetrack/internal/store"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
)

// App holds the long-running server components
type App struct {
	config      *config.Config
	store       *store.Store
	logger      *zap.Logger
	ledger      *ledger.Service
	telegramBot *telegram.Bot
	discordBot  *discord.Bot
	scheduler   *reminder.Scheduler
}

func main() {
	// Handle subcommands before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			cli.HandleInitCommand("", "")
			return
		case "list", "ls":
			cli.HandleListCommand("", "")
			return
		case "today":
			cli.HandleTodayCommand("", "")
			return
		case "take":
			cli.HandleTakeCommand(os.Args[2:], "", "")
			return
		case "skip":
			cli.HandleSkipCommand(os.Args[2:], "", "")
			return
		case "undo":
			cli.HandleUndoCommand(os.Args[2:], "", "")
			return
		case "calendar", "cal":
			cli.HandleCalendarCommand(os.Args[2:], "", "")
			return
		case "stats":
			cli.HandleStatsCommand("", "")
			return
		case "status":
			handleStatusCommand()
			return
		case "doctor":
			handleDoctorCommand()
			return
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		case "help", "--help", "-h":
			printHelp()
			return
		case "version", "--version", "-v":
			fmt.Printf("DoseTrack version %s\n", api.Version)
			return
		}
	}

	flag.Parse()

	// First run in an interactive terminal: offer to write a starter config
	if *configPath == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		defaultCfg := config.DefaultConfigPath(*dataDir)
		if _, err := os.Stat(defaultCfg); os.IsNotExist(err) {
			fmt.Println("Welcome to DoseTrack!")
			fmt.Printf("No config found at %s.\n", defaultCfg)
			fmt.Print("Write a starter config? (Y/n): ")

			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))

			if response == "" || response == "y" || response == "yes" {
				if err := config.WriteDefault(defaultCfg); err != nil {
					fmt.Printf("Error writing config: %v\n", err)
				} else {
					fmt.Printf("✓ Wrote %s\n\n", defaultCfg)
				}
			}
		}
	}

	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting DoseTrack", zap.String("version", api.Version))

	// Load configuration
	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize data store
	st, err := store.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	app := &App{
		config: cfg,
		store:  st,
		logger: logger,
		ledger: ledger.New(st, logger),
	}

	app.runServer()
}

func (app *App) runServer() {
	// Initialize API server first; its WebSocket hub doubles as a
	// reminder delivery channel.
	server := api.New(app.config, app.store, app.ledger, app.logger)

	notifiers := []reminder.Notifier{server.Hub()}

	// Initialize Telegram bot if enabled
	if app.config.Channels.Telegram.Enabled {
		telegramCfg := telegram.Config{
			Token:   app.config.Channels.Telegram.BotToken,
			Enabled: true,
			ChatID:  app.config.Channels.Telegram.ChatID,
		}
		bot, err := telegram.NewBot(telegramCfg, app.store, app.ledger, app.logger)
		if err != nil {
			app.logger.Error("Failed to create Telegram bot", zap.Error(err))
		} else {
			app.telegramBot = bot
			notifiers = append(notifiers, bot)

			// Start polling async so network issues do not block startup
			go func() {
				if err := bot.Start(); err != nil {
					app.logger.Error("Failed to start Telegram bot", zap.Error(err))
					return
				}
				app.logger.Info("Telegram bot started")
			}()
		}
	}

	// Initialize Discord bot if enabled
	if app.config.Channels.Discord.Enabled && app.config.Channels.Discord.Token != "" {
		discordCfg := discord.Config{
			Token:     app.config.Channels.Discord.Token,
			Enabled:   true,
			ChannelID: app.config.Channels.Discord.ChannelID,
		}
		bot, err := discord.NewBot(discordCfg, app.logger)
		if err != nil {
			app.logger.Error("Failed to create Discord bot", zap.Error(err))
		} else {
			app.discordBot = bot
			notifiers = append(notifiers, bot)

			go func() {
				if err := bot.Start(); err != nil {
					app.logger.Error("Failed to start Discord bot", zap.Error(err))
					return
				}
				app.logger.Info("Discord bot started")
			}()
		}
	}

	// Initialize reminder scheduler if enabled
	if app.config.Reminders.Enabled {
		dedupTTL := time.Duration(app.config.Reminders.DedupTTLHours) * time.Hour
		app.scheduler = reminder.NewScheduler(app.store, app.logger, dedupTTL, notifiers...)
		if err := app.scheduler.Start(); err != nil {
			app.logger.Error("Failed to start reminder scheduler", zap.Error(err))
			app.scheduler = nil
		} else {
			app.logger.Info("Reminder scheduler started")
		}

		// Rebuild reminder entries whenever medications change
		server.OnMedicationsChanged(func() {
			if app.scheduler == nil {
				return
			}
			if err := app.scheduler.Reload(); err != nil {
				app.logger.Error("Failed to reload reminders", zap.Error(err))
			}
		})
	}

	// Watch the config file; a valid edit rebuilds the reminder entries
	cfgFile := *configPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath(app.config.Storage.DataDir)
	}
	if err := config.Watch(cfgFile, app.logger, func(next *config.Config) {
		app.config.Reminders = next.Reminders
		app.config.Billing = next.Billing
		if app.scheduler != nil {
			if err := app.scheduler.Reload(); err != nil {
				app.logger.Error("Failed to reload reminders", zap.Error(err))
			}
		}
	}); err != nil {
		app.logger.Warn("Config watch unavailable", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			app.logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.logger.Info("Server started",
		zap.String("address", app.config.Server.Address),
		zap.Int("port", app.config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.config.Server.Port)),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.logger.Info("Shutting down...")

	if app.telegramBot != nil {
		app.telegramBot.Stop()
	}
	if app.discordBot != nil {
		app.discordBot.Stop()
	}
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if err := server.Shutdown(); err != nil {
		app.logger.Error("Server shutdown error", zap.Error(err))
	}
}

func handleStatusCommand() {
	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("DoseTrack Status")
	fmt.Println("================")
	fmt.Println()
	fmt.Printf("Version: %s\n", api.Version)
	fmt.Printf("Config:  %s\n", config.DefaultConfigPath(cfg.Storage.DataDir))
	fmt.Printf("Data:    %s\n", cfg.Storage.DataDir)
	fmt.Println()
	fmt.Println("Server Configuration:")
	fmt.Printf("  Address: %s:%d\n", cfg.Server.Address, cfg.Server.Port)
	fmt.Printf("  URL: http://localhost:%d\n", cfg.Server.Port)
	fmt.Println()
	fmt.Println("Reminder Channels:")
	fmt.Printf("  Telegram: %s\n", channelStatus(cfg.Channels.Telegram.Enabled))
	fmt.Printf("  Discord:  %s\n", channelStatus(cfg.Channels.Discord.Enabled))
	fmt.Printf("  Reminders: %s (dedup %dh)\n", channelStatus(cfg.Reminders.Enabled), cfg.Reminders.DedupTTLHours)
	fmt.Println()
	fmt.Println("Run 'dosetrack doctor' for diagnostics")
}

// handleDoctorCommand runs diagnostics
func handleDoctorCommand() {
	fmt.Println("DoseTrack Diagnostics")
	fmt.Println("=====================")
	fmt.Println()

	issues := 0

	// Check config
	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Println("❌ Config: Error loading configuration")
		fmt.Printf("   %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Config: Loaded successfully")

	// Check data directory
	if _, err := os.Stat(cfg.Storage.DataDir); os.IsNotExist(err) {
		fmt.Println("❌ Data Directory: Does not exist")
		issues++
	} else {
		fmt.Println("✅ Data Directory: Exists")
	}

	// Check database (also fails when another process holds the lock)
	st, err := store.New(cfg)
	if err != nil {
		fmt.Println("❌ Database: Cannot open")
		fmt.Printf("   %v\n", err)
		issues++
	} else {
		meds, err := st.ListMedications(store.DefaultUserID)
		if err != nil {
			fmt.Println("❌ Database: Cannot query")
			issues++
		} else {
			fmt.Printf("✅ Database: OK (%d medications)\n", len(meds))
		}
		st.Close()
	}

	// Check channels
	if cfg.Channels.Telegram.Enabled {
		fmt.Printf("✅ Telegram: Enabled (token %s)\n", maskToken(cfg.Channels.Telegram.BotToken))
	} else {
		fmt.Println("ℹ️  Telegram: Disabled")
	}
	if cfg.Channels.Discord.Enabled {
		fmt.Printf("✅ Discord: Enabled (token %s)\n", maskToken(cfg.Channels.Discord.Token))
	} else {
		fmt.Println("ℹ️  Discord: Disabled")
	}

	if cfg.Security.AdminPassword == "" {
		fmt.Println("⚠️  Admin password: Not set, the API accepts any login")
		issues++
	} else {
		fmt.Println("✅ Admin password: Set")
	}

	fmt.Println()
	if issues == 0 {
		fmt.Println("✅ All checks passed!")
	} else {
		fmt.Printf("⚠️  Found %d issue(s).\n", issues)
	}
}

func channelStatus(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func printHelp() {
	fmt.Println("DoseTrack - personal medication tracker")
	fmt.Println()
	fmt.Println("Usage: dosetrack [command] [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve              Run the API server with reminders (default)")
	fmt.Println("  init               Write a default config file")
	fmt.Println("  list               List tracked medications")
	fmt.Println("  today              Show what is due today")
	fmt.Println("  take <name>        Log a dose as taken")
	fmt.Println("  skip <name>        Log a dose as skipped")
	fmt.Println("  undo <name>        Revert today's last action for a medication")
	fmt.Println("  calendar [YYYY-MM] Show the adherence month grid")
	fmt.Println("  stats              Show adherence analytics")
	fmt.Println("  status             Show configuration summary")
	fmt.Println("  doctor             Run diagnostics")
	fmt.Println("  version            Show version")
	fmt.Println()
	fmt.Println("Flags (serve):")
	fmt.Println("  --config <path>    Config file (default: <data>/dosetrack.yaml)")
	fmt.Println("  --data <path>      Data directory (default: ~/.local/share/dosetrack)")
}
