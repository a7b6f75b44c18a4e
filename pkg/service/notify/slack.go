package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/intake-lab/prosecoach/pkg/domain/interfaces"
	"github.com/intake-lab/prosecoach/pkg/domain/model"
)

// SlackNotifier posts urgent safety alerts to an operator channel. Message
// content never includes the user's own words, only the session reference and
// the matched flags.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlack creates a Slack notifier posting to the given channel ID
func NewSlack(token, channelID string) (*SlackNotifier, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel ID is required")
	}
	return &SlackNotifier{
		api:     slack.New(token),
		channel: channelID,
	}, nil
}

var _ interfaces.Notifier = (*SlackNotifier)(nil)

// NotifyUrgent posts one alert for an urgent safety detection
func (n *SlackNotifier) NotifyUrgent(ctx context.Context, session *model.Session, flags []string) error {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, ":rotating_light: Urgent safety detection", true, false),
		),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Session:*\n`%s`", session.ID), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Track:*\n%s", session.Track), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Jurisdiction:*\n%s", session.Jurisdiction), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Flags:*\n%s", strings.Join(flags, ", ")), false, false),
		}, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType, "The user received the emergency-resources reply. Follow up per the escalation runbook.", false, false),
		),
	}

	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText("Urgent safety detection in session "+session.ID.String(), false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post urgent safety alert",
			goerr.V("channel", n.channel),
			goerr.V("session_id", session.ID),
		)
	}
	return nil
}
