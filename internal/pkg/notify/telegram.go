// Package notify sends hot-ticket alerts to Telegram.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

const (
	// DefaultCooldown is how long a game stays muted after it was alerted
	DefaultCooldown = 24 * time.Hour
	// DefaultSendInterval spaces messages to the same chat (Telegram allows ~30/min)
	DefaultSendInterval = 2 * time.Second
	// DefaultMaxGames caps the number of games listed in one digest
	DefaultMaxGames = 10
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Options struct {
	Cooldown     time.Duration
	SendInterval time.Duration
	MaxGames     int
}

func (o Options) withDefaults() Options {
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.SendInterval <= 0 {
		o.SendInterval = DefaultSendInterval
	}
	if o.MaxGames <= 0 {
		o.MaxGames = DefaultMaxGames
	}
	return o
}

// HotTicketNotifier sends one digest per jurisdiction batch listing the hot
// games that were not alerted within the cooldown.
type HotTicketNotifier struct {
	sender Sender
	chatID int64
	opts   Options

	mu       sync.Mutex
	lastSend time.Time
	alerted  map[string]time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewTelegramNotifier connects to the Bot API and checks the token
func NewTelegramNotifier(token string, chatID int64, opts Options) (*HotTicketNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}

	slog.Info("Telegram notifier initialized", "chat_id", chatID)
	return NewHotTicketNotifier(bot, chatID, opts), nil
}

func NewHotTicketNotifier(sender Sender, chatID int64, opts Options) *HotTicketNotifier {
	return &HotTicketNotifier{
		sender:  sender,
		chatID:  chatID,
		opts:    opts.withDefaults(),
		alerted: make(map[string]time.Time),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Ingest alerts on the hot games of a batch. Games are muted only after a successful send.
func (n *HotTicketNotifier) Ingest(ctx context.Context, jurisdiction models.Jurisdiction, records []models.GameRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	games := n.pending(records)
	if len(games) == 0 {
		return nil
	}

	if wait := n.opts.SendInterval - n.now().Sub(n.lastSend); wait > 0 {
		slog.Debug("Telegram send: waiting for rate limit", "wait_time", wait)
		if err := n.sleep(ctx, wait); err != nil {
			return err
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatDigest(jurisdiction, games))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	n.lastSend = n.now()
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send hot ticket digest: %w", err)
	}

	sentAt := n.now()
	for _, g := range games {
		n.alerted[g.Key()] = sentAt
	}
	slog.Info("Telegram send: success", "jurisdiction", jurisdiction.Display(), "hot_games", len(games))
	return nil
}

// pending returns the hot games outside their cooldown, best value first
func (n *HotTicketNotifier) pending(records []models.GameRecord) []models.GameRecord {
	now := n.now()
	var out []models.GameRecord
	for _, r := range records {
		if !r.IsHot {
			continue
		}
		if last, ok := n.alerted[r.Key()]; ok && now.Sub(last) < n.opts.Cooldown {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ValueScore != out[j].ValueScore {
			return out[i].ValueScore > out[j].ValueScore
		}
		return out[i].EV > out[j].EV
	})
	if len(out) > n.opts.MaxGames {
		out = out[:n.opts.MaxGames]
	}
	return out
}

// FormatDigest renders the hot-ticket message of one jurisdiction
func FormatDigest(jurisdiction models.Jurisdiction, games []models.GameRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 *Hot Ticket Alert: %s*\n\n", jurisdiction.Display())
	for _, g := range games {
		fmt.Fprintf(&b, "*%s* ($%s)\n", escapeMarkdown(g.Name), formatPrice(g.Price))
		fmt.Fprintf(&b, "EV: %.1f%% | Score: %d | Top prize: %s\n", g.EV*100, g.ValueScore, g.TopPrize.Odds)
		if g.DetailURL != "" {
			fmt.Fprintf(&b, "%s\n", escapeMarkdown(g.DetailURL))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%.2f", p)
}

// escapeMarkdown escapes the characters legacy Markdown mode treats as markup
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
