package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Vodeneev/scratchiq/internal/pkg/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(s.sent)}, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestNotifier(sender Sender, opts Options) (*HotTicketNotifier, *fakeClock, *[]time.Duration) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	n := NewHotTicketNotifier(sender, 42, opts)
	n.now = clock.Now
	var waits []time.Duration
	n.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		clock.t = clock.t.Add(d)
		return nil
	}
	return n, clock, &waits
}

func game(id string, hot bool, score int) models.GameRecord {
	return models.GameRecord{
		GameListing:  models.GameListing{ExternalID: id, Name: "Lucky_" + id, Price: 5, DetailURL: "https://lottery.test/" + id},
		Jurisdiction: models.JurisdictionNC,
		EV:           0.75,
		IsHot:        hot,
		ValueScore:   score,
		TopPrize:     models.TopPrizeInfo{Odds: "1:500000"},
	}
}

func TestIngest_SendsDigestOfHotGames(t *testing.T) {
	sender := &fakeSender{}
	n, _, _ := newTestNotifier(sender, Options{})

	batch := []models.GameRecord{game("1", false, 90), game("2", true, 60), game("3", true, 80)}
	if err := n.Ingest(context.Background(), models.JurisdictionNC, batch); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("message config = chat %d, mode %q", msg.ChatID, msg.ParseMode)
	}
	if strings.Contains(msg.Text, "Lucky\\_1") {
		t.Error("digest lists a game that is not hot")
	}
	if strings.Index(msg.Text, "Lucky\\_3") > strings.Index(msg.Text, "Lucky\\_2") {
		t.Errorf("digest not ordered by score:\n%s", msg.Text)
	}
}

func TestIngest_Cooldown(t *testing.T) {
	sender := &fakeSender{}
	n, clock, _ := newTestNotifier(sender, Options{Cooldown: time.Hour})
	ctx := context.Background()
	batch := []models.GameRecord{game("1", true, 70)}

	if err := n.Ingest(ctx, models.JurisdictionNC, batch); err != nil {
		t.Fatal(err)
	}
	clock.t = clock.t.Add(30 * time.Minute)
	if err := n.Ingest(ctx, models.JurisdictionNC, batch); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages within cooldown, want 1", len(sender.sent))
	}

	clock.t = clock.t.Add(time.Hour)
	if err := n.Ingest(ctx, models.JurisdictionNC, batch); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 2 {
		t.Errorf("sent %d messages after cooldown, want 2", len(sender.sent))
	}
}

func TestIngest_WaitsForSendInterval(t *testing.T) {
	sender := &fakeSender{}
	n, _, waits := newTestNotifier(sender, Options{SendInterval: 3 * time.Second})
	ctx := context.Background()

	if err := n.Ingest(ctx, models.JurisdictionNC, []models.GameRecord{game("1", true, 70)}); err != nil {
		t.Fatal(err)
	}
	if err := n.Ingest(ctx, models.JurisdictionPA, []models.GameRecord{game("2", true, 70)}); err != nil {
		t.Fatal(err)
	}

	if len(*waits) != 1 || (*waits)[0] != 3*time.Second {
		t.Errorf("waits = %v, want [3s]", *waits)
	}
}

func TestIngest_FailedSendDoesNotMute(t *testing.T) {
	sender := &fakeSender{err: errors.New("Too Many Requests")}
	n, _, _ := newTestNotifier(sender, Options{})
	ctx := context.Background()
	batch := []models.GameRecord{game("1", true, 70)}

	if err := n.Ingest(ctx, models.JurisdictionNC, batch); err == nil {
		t.Fatal("expected send error")
	}

	sender.err = nil
	if err := n.Ingest(ctx, models.JurisdictionNC, batch); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent %d messages, want retry to go out", len(sender.sent))
	}
}

func TestIngest_NoHotGames(t *testing.T) {
	sender := &fakeSender{}
	n, _, _ := newTestNotifier(sender, Options{})

	if err := n.Ingest(context.Background(), models.JurisdictionNC, []models.GameRecord{game("1", false, 99)}); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(sender.sent))
	}
}

func TestIngest_CapsDigest(t *testing.T) {
	sender := &fakeSender{}
	n, _, _ := newTestNotifier(sender, Options{MaxGames: 2})

	batch := []models.GameRecord{game("1", true, 50), game("2", true, 70), game("3", true, 60)}
	if err := n.Ingest(context.Background(), models.JurisdictionNC, batch); err != nil {
		t.Fatal(err)
	}
	text := sender.sent[0].Text
	if strings.Contains(text, "Lucky\\_1") || !strings.Contains(text, "Lucky\\_2") || !strings.Contains(text, "Lucky\\_3") {
		t.Errorf("digest should keep the two best games:\n%s", text)
	}

	// the game cut from the digest was not muted
	if err := n.Ingest(context.Background(), models.JurisdictionNC, batch); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 2 || !strings.Contains(sender.sent[1].Text, "Lucky\\_1") {
		t.Errorf("second digest = %+v", sender.sent)
	}
}

func TestFormatDigest(t *testing.T) {
	g := game("9", true, 88)
	g.Price = 2.5
	text := FormatDigest(models.JurisdictionMD, []models.GameRecord{g})

	for _, want := range []string{"Hot Ticket Alert: MD", "*Lucky\\_9* ($2.50)", "EV: 75.0% | Score: 88 | Top prize: 1:500000", "https://lottery.test/9"} {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}
}

func TestFormatDigest_EscapesDetailURL(t *testing.T) {
	g := game("12", true, 80)
	g.DetailURL = "https://x.test/scratch_offs/game_12"
	text := FormatDigest(models.JurisdictionNC, []models.GameRecord{g})

	if !strings.Contains(text, `https://x.test/scratch\_offs/game\_12`) {
		t.Errorf("digest does not escape the detail url:\n%s", text)
	}
	if strings.Contains(text, "scratch_offs") {
		t.Errorf("digest contains a raw underscore:\n%s", text)
	}
}
