// Package hook notifies external services of verification results.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphi011/timeline/internal/verify"
	"github.com/slack-go/slack"
)

// SlackHook sends a message to a slack channel whenever a verification
// finds fixtures whose output changed.
type SlackHook struct {
	api             *slack.Client
	notifyChannelID string

	log *slog.Logger
}

func NewSlackHook(channelID, token string, log *slog.Logger, opts ...slack.Option) *SlackHook {
	return &SlackHook{
		api:             slack.New(token, opts...),
		notifyChannelID: channelID,
		log:             log,
	}
}

func (h *SlackHook) Name() string {
	return "Slack"
}

func (h *SlackHook) Init(ctx context.Context) error {
	_, err := h.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("invalid auth token: %w", err)
	}

	return nil
}

func (h *SlackHook) VerificationFinished(ctx context.Context, fixtureDir string, summary verify.Summary) {
	if summary.Failed == 0 {
		return
	}

	text := strings.Builder{}

	text.WriteString(fmt.Sprintf("Verification of `%s` failed for %d of %d fixtures.", fixtureDir, summary.Failed, summary.Total))
	text.WriteString("\n\n")
	text.WriteString("Failures:\n")

	for _, f := range summary.Failures {
		// diffs are too long for a message, only keep the first line
		line, _, _ := strings.Cut(f, "\n")
		text.WriteString(fmt.Sprintf("- %s\n", line))
	}

	newMarkdownSection := slack.NewSectionBlock(
		slack.NewTextBlockObject(
			"mrkdwn",
			text.String(),
			false, false,
		),

		nil, nil)

	msg := []slack.MsgOption{
		slack.MsgOptionBlocks(newMarkdownSection),
	}

	_, _, err := h.api.PostMessageContext(ctx, h.notifyChannelID, msg...)
	if err != nil {
		h.log.Error("unable to send slack message", "error", err)
	}
}
