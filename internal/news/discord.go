package news

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordSink posts news events to a Discord channel. Send-only: it never
// listens for inbound messages.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
}

// NewDiscordSink opens a Discord session for the given bot token.
func NewDiscordSink(token, channelID string, logger *zap.Logger) (*DiscordSink, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord open: %w", err)
	}
	logger.Info("discord news sink connected", zap.String("channel", channelID))
	return &DiscordSink{session: session, channelID: channelID, logger: logger}, nil
}

func (s *DiscordSink) Name() string { return "discord" }

func (s *DiscordSink) Post(_ context.Context, ev *Event) error {
	_, err := s.session.ChannelMessageSend(s.channelID, "📰 "+ev.Message)
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (s *DiscordSink) Close() error {
	return s.session.Close()
}
