package news

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackSink posts news events to a Slack channel via the Web API.
type SlackSink struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackSink creates a Slack sink and verifies the token.
func NewSlackSink(botToken, channel string, logger *zap.Logger) (*SlackSink, error) {
	client := slack.New(botToken)
	if _, err := client.AuthTest(); err != nil {
		return nil, fmt.Errorf("slack auth: %w", err)
	}
	logger.Info("slack news sink connected", zap.String("channel", channel))
	return &SlackSink{client: client, channel: channel, logger: logger}, nil
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Post(ctx context.Context, ev *Event) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText("📰 "+ev.Message, false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}

func (s *SlackSink) Close() error { return nil }
