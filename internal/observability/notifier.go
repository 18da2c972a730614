package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier delivers triggered alerts to an external channel.
type Notifier interface {
	Notify(alerts []Alert) error
}

// slackNotifier posts alerts to a Slack incoming-webhook URL as a block
// message: one header, then a section per alert separated by dividers.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier posting to the given webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts the alerts as one message. An empty alert slice is a no-op;
// nothing is sent and nil is returned.
func (s *slackNotifier) Notify(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(buildAlertMessage(alerts))
	if err != nil {
		return fmt.Errorf("encoding slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildAlertMessage(alerts []Alert) slackMessage {
	msg := slackMessage{
		Blocks: []slackBlock{{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "aqg Queue Alerts"},
		}},
	}

	for i, a := range alerts {
		if i > 0 {
			msg.Blocks = append(msg.Blocks, slackBlock{Type: "divider"})
		}
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: formatAlertText(a)},
		})
	}
	return msg
}

func formatAlertText(a Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s]* %s", severityEmoji(a.Severity), strings.ToUpper(string(a.Severity)), a.Message)
	if a.Condition != "" {
		fmt.Fprintf(&b, "\ncondition: `%s`", a.Condition)
	}
	fmt.Fprintf(&b, "\n_%s_", a.TriggeredAt.Format("2006-01-02 15:04 UTC"))
	return b.String()
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}
