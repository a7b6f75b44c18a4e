package config

import (
	"github.com/urfave/cli/v3"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/service/notify"
)

// Slack holds CLI flags for the urgent-safety alert channel
type Slack struct {
	botToken  string
	channelID string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack bot token for urgent safety alerts",
			Category:    "Notification",
			Sources:     cli.EnvVars("PROSECOACH_SLACK_BOT_TOKEN"),
			Destination: &s.botToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Usage:       "Slack channel ID receiving urgent safety alerts",
			Category:    "Notification",
			Sources:     cli.EnvVars("PROSECOACH_SLACK_CHANNEL_ID"),
			Destination: &s.channelID,
		},
	}
}

// IsConfigured reports whether both token and channel are set
func (s *Slack) IsConfigured() bool {
	return s.botToken != "" && s.channelID != ""
}

// Configure creates the Slack notifier, or nil when not configured
func (s *Slack) Configure() (interfaces.Notifier, error) {
	if !s.IsConfigured() {
		return nil, nil
	}
	return notify.NewSlack(s.botToken, s.channelID)
}
