// Package discord delivers dose reminders to a Discord channel
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/gmsas95/dosetrack/internal/reminder"
)

// Config holds Discord bot configuration
type Config struct {
	Token     string
	Enabled   bool
	ChannelID string // Destination channel for reminders
}

// Bot represents the Discord integration
type Bot struct {
	session *discordgo.Session
	config  Config
	logger  *zap.Logger
	enabled bool
}

// NewBot creates a new Discord bot
func NewBot(cfg Config, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return &Bot{enabled: false}, nil
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		config:  cfg,
		logger:  logger,
		enabled: true,
	}

	session.AddHandler(bot.ready)
	session.Identify.Intents = discordgo.IntentsGuildMessages

	return bot, nil
}

// Start opens the Discord gateway connection
func (b *Bot) Start() error {
	if !b.enabled {
		return nil
	}

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}

	return nil
}

// Stop closes the gateway connection
func (b *Bot) Stop() error {
	if !b.enabled {
		return nil
	}
	return b.session.Close()
}

// Name identifies the channel in metrics and logs.
func (b *Bot) Name() string { return "discord" }

// Notify sends a reminder to the configured channel.
func (b *Bot) Notify(ctx context.Context, r reminder.Reminder) error {
	if !b.enabled {
		return nil
	}
	if b.config.ChannelID == "" {
		return fmt.Errorf("discord channel_id not configured")
	}
	_, err := b.session.ChannelMessageSend(b.config.ChannelID, "💊 "+r.Message())
	return err
}

// ready is called when the bot is ready
func (b *Bot) ready(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("Discord bot ready",
		zap.String("username", s.State.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)
}
