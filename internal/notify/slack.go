// Package notify posts run announcements to Slack.
package notify

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/p-blackswan/code-company/internal/workflow"
)

// MessagePoster abstracts the Slack API client for testing.
type MessagePoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier announces completed workflow runs to a Slack channel.
type SlackNotifier struct {
	api     MessagePoster
	channel string
	logger  zerolog.Logger
}

// NewSlackNotifier creates a notifier for the given bot token and channel.
func NewSlackNotifier(botToken, channel string, logger zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(botToken),
		channel: channel,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// SetAPI replaces the Slack client. Test hook.
func (n *SlackNotifier) SetAPI(api MessagePoster) { n.api = api }

// AnnounceRun posts a summary of a completed run.
func (n *SlackNotifier) AnnounceRun(ctx context.Context, summary workflow.RunSummary) error {
	blocks := buildRunBlocks(summary)
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(runFallbackText(summary), false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("post run announcement: %w", err)
	}
	n.logger.Debug().Str("channel", n.channel).Msg("run announcement posted")
	return nil
}

// truncate shortens s to max runes, appending "…" if truncated.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "…"
}

func runFallbackText(summary workflow.RunSummary) string {
	return fmt.Sprintf("%s run finished: %s / %s",
		summary.Company,
		summary.Summary.CEO.Decision,
		summary.Summary.Operations.Status,
	)
}

func buildRunBlocks(summary workflow.RunSummary) []slack.Block {
	title := summary.Summary.Technical.ProjectTitle
	if title == "" {
		title = "N/A"
	}

	decisionIcon := "❌"
	if summary.Summary.CEO.Decision == workflow.DecisionApprove {
		decisionIcon = "✅"
	}

	detail := fmt.Sprintf(
		"*%s — run completed*\n"+
			"*Project:* %s\n"+
			"*CEO decision:* %s %s\n"+
			"*Reason:* %s\n"+
			"*Operations:* %s",
		summary.Company,
		truncate(title, 120),
		decisionIcon,
		summary.Summary.CEO.Decision,
		truncate(summary.Summary.CEO.Reason, 300),
		summary.Summary.Operations.Status,
	)

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject("mrkdwn", detail, false, false),
			nil, nil,
		),
	}

	if s := summary.Details.Operations.SolutionSummary; s != "" {
		blocks = append(blocks, slack.NewContextBlock(
			"run_solution",
			slack.NewTextBlockObject("mrkdwn", truncate(s, 300), false, false),
		))
	}
	return blocks
}
