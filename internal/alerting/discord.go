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
)

// DiscordNotifier posts messages to a single channel via the Discord REST
// API using bot-token auth.
type DiscordNotifier struct {
	botToken  string
	channelID string
	baseURL   string
	client    *http.Client
	logger    zerolog.Logger
}

// NewDiscordNotifier constructs a Discord channel notifier.
func NewDiscordNotifier(botToken, channelID, baseURL string, timeout time.Duration, logger zerolog.Logger) *DiscordNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://discord.com/api/v10"
	}

	return &DiscordNotifier{
		botToken:  botToken,
		channelID: channelID,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "alert_discord").Logger(),
	}
}

type discordEmbed struct {
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Color       int               `json:"color,omitempty"`
	Thumbnail   *discordThumbnail `json:"thumbnail,omitempty"`
}

type discordThumbnail struct {
	URL string `json:"url"`
}

type createMessagePayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

// Notify sends one channel message. Embed cards are used when a title is
// present, plain content otherwise.
func (n *DiscordNotifier) Notify(ctx context.Context, message Message) error {
	payload := createMessagePayload{}
	if message.Title != "" {
		embed := discordEmbed{
			Title:       message.Title,
			Description: message.Description,
			Color:       message.Color,
		}
		if message.ThumbnailURL != "" {
			embed.Thumbnail = &discordThumbnail{URL: message.ThumbnailURL}
		}
		payload.Embeds = []discordEmbed{embed}
	} else {
		payload.Content = message.Text
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages", n.baseURL, n.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+n.botToken)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send discord request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("discord api error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("discord api error (%d)", resp.StatusCode)
	}

	n.logger.Info().Str("channel_id", n.channelID).Str("title", message.Title).Msg("alert delivered")
	return nil
}

var _ Notifier = (*DiscordNotifier)(nil)
