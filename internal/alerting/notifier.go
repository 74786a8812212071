package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
	"github.com/yourdesigncoza/get-insider-db/internal/version"
)

// maxListed caps how many participants are named per group.
const maxListed = 6

// Notification wraps one newly detected campaign.
type Notification struct {
	Campaign cluster.Campaign
	AsOf     time.Time
	RunID    string
}

// Notifier delivers campaign alerts.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier builds a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered campaign.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false: %s", result.Description)
		}
	}

	n.logger.Info().
		Str("ticker", note.Campaign.Ticker).
		Time("window_start", note.Campaign.WindowStart).
		Float64("cluster_score", note.Campaign.ClusterScore).
		Msg("alert sent")
	return nil
}

// RenderMessage formats a campaign as plain text.
func RenderMessage(note Notification) string {
	c := note.Campaign
	var b strings.Builder

	title := c.Ticker
	if c.IssuerName != "" {
		title += " (" + c.IssuerName + ")"
	}
	fmt.Fprintf(&b, "[Insider Cluster Buy] %s\n", title)
	fmt.Fprintf(&b, "Window: %s to %s (%d days)\n",
		c.WindowStart.Format(insider.DateLayout), c.WindowEnd.Format(insider.DateLayout), c.SpanDays())
	fmt.Fprintf(&b, "Score: %.2f | Role score: %d | Key officers: %d\n", c.ClusterScore, c.RoleScore, c.NumKeyOfficers)
	if len(c.KeyRoles) > 0 {
		fmt.Fprintf(&b, "Key roles: %s\n", strings.Join(c.KeyRoles, ", "))
	}
	fmt.Fprintf(&b, "Value: %s over %d trades\n", insider.FormatUSD(c.TotalValue), c.NumTrades)
	writeGroup(&b, "People", c.PeopleLabels())
	writeGroup(&b, "Funds", c.FundLabels())
	if !note.AsOf.IsZero() {
		fmt.Fprintf(&b, "Data as of %s\n", note.AsOf.Format(insider.DateLayout))
	}
	return b.String()
}

func writeGroup(b *strings.Builder, name string, labels []string) {
	if len(labels) == 0 {
		return
	}
	shown := labels
	if len(shown) > maxListed {
		shown = shown[:maxListed]
	}
	fmt.Fprintf(b, "%s (%d): %s", name, len(labels), strings.Join(shown, "; "))
	if extra := len(labels) - len(shown); extra > 0 {
		fmt.Fprintf(b, "; +%d more", extra)
	}
	b.WriteByte('\n')
}

var _ Notifier = (*TelegramNotifier)(nil)
