// Package telegram delivers dose reminders over Telegram and answers a
// small set of adherence commands.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/gmsas95/dosetrack/internal/calendar"
	"github.com/gmsas95/dosetrack/internal/ledger"
	"github.com/gmsas95/dosetrack/internal/reminder"
	"github.com/gmsas95/dosetrack/internal/schedule"
	"github.com/gmsas95/dosetrack/internal/store"
)

// Config holds Telegram bot configuration
type Config struct {
	Token   string
	Enabled bool
	ChatID  int64 // Destination chat for reminders
}

// Bot represents the Telegram integration
type Bot struct {
	api     *tgbotapi.BotAPI
	store   *store.Store
	ledger  *ledger.Service
	logger  *zap.Logger
	chatID  int64
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	enabled bool
}

// NewBot creates a new Telegram bot
func NewBot(cfg Config, st *store.Store, lg *ledger.Service, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return &Bot{enabled: false}, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false

	ctx, cancel := context.WithCancel(context.Background())

	return &Bot{
		api:     api,
		store:   st,
		ledger:  lg,
		logger:  logger,
		chatID:  cfg.ChatID,
		ctx:     ctx,
		cancel:  cancel,
		enabled: true,
	}, nil
}

// Name identifies the channel in metrics and logs.
func (b *Bot) Name() string { return "telegram" }

// Notify sends a reminder to the configured chat.
func (b *Bot) Notify(ctx context.Context, r reminder.Reminder) error {
	if !b.enabled {
		return nil
	}
	if b.chatID == 0 {
		return fmt.Errorf("telegram chat_id not configured")
	}
	msg := tgbotapi.NewMessage(b.chatID, "💊 "+r.Message())
	_, err := b.api.Send(msg)
	return err
}

// Start begins polling for commands
func (b *Bot) Start() error {
	if !b.enabled {
		return nil
	}

	b.wg.Add(1)
	go b.run()

	return nil
}

// Stop stops the bot
func (b *Bot) Stop() {
	if !b.enabled {
		return
	}

	b.cancel()
	b.wg.Wait()
}

func (b *Bot) run() {
	defer b.wg.Done()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := b.handleUpdate(update); err != nil {
				b.logger.Error("Failed to handle update", zap.Error(err))
			}
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	if b.chatID != 0 && msg.Chat.ID != b.chatID {
		return nil
	}

	if msg.IsCommand() {
		return b.handleCommand(msg)
	}
	return nil
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		_, err := b.sendMessage(chatID, `💊 DoseTrack

/today - medications due today
/take <name> - log a dose as taken
/skip <name> - log a dose as skipped`)
		return err

	case "today":
		text, err := b.todayText()
		if err != nil {
			return err
		}
		_, err = b.sendMessage(chatID, text)
		return err

	case "take":
		return b.recordByName(chatID, msg.CommandArguments(), store.LogTaken)

	case "skip":
		return b.recordByName(chatID, msg.CommandArguments(), store.LogSkipped)

	default:
		_, err := b.sendMessage(chatID, "Unknown command. Try /help.")
		return err
	}
}

func (b *Bot) todayText() (string, error) {
	meds, err := b.store.ListMedications(store.DefaultUserID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, m := range meds {
		if !schedule.DueOn(m.Schedule, m.CreatedAt, time.Now()) {
			continue
		}
		taken, err := b.ledger.TakenToday(store.DefaultUserID, m.ID)
		if err != nil {
			return "", err
		}
		mark := "▢"
		if taken {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "%s %s (%s) at %s\n", mark, m.Name, calendar.FormatDosage(m.Dosage), strings.Join(m.Schedule.Times, ", "))
	}
	if sb.Len() == 0 {
		return "Nothing due today.", nil
	}
	return sb.String(), nil
}

func (b *Bot) recordByName(chatID int64, name, status string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		_, err := b.sendMessage(chatID, "Usage: /"+status+" <medication name>")
		return err
	}

	meds, err := b.store.ListMedications(store.DefaultUserID)
	if err != nil {
		return err
	}

	for _, m := range meds {
		if !strings.EqualFold(m.Name, name) {
			continue
		}
		if _, err := b.ledger.RecordAction(b.ctx, store.DefaultUserID, m.ID, status); err != nil {
			_, serr := b.sendMessage(chatID, "Could not log "+m.Name+": "+err.Error())
			return serr
		}
		_, err := b.sendMessage(chatID, fmt.Sprintf("Logged %s as %s.", m.Name, status))
		return err
	}

	_, err = b.sendMessage(chatID, "No medication named "+name+".")
	return err
}

func (b *Bot) sendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	return b.api.Send(msg)
}
