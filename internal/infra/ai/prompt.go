package ai

import (
	"errors"
	"strings"

	"github.com/bytedance/sonic"
)

const DraftSystemPrompt = `You turn customer support conversations into help-desk tickets.
Reply with a single JSON object and nothing else:
{"title": "<short summary, max 80 chars>", "description": "<what the customer needs, with relevant details>", "priority": "low|medium|high|urgent"}`

const SummarySystemPrompt = `You summarise help-desk work sessions for the support team.
Write a concise plain-text summary: the problem, what was done, and any follow-up still needed.
Do not invent details that are not in the session.`

const ChatSystemPrompt = `You are the OHFdesk support assistant. Help the customer describe their problem clearly,
ask short clarifying questions, and suggest simple fixes when you are confident.`

var ErrNoDraft = errors.New("ai reply does not contain a ticket draft")

type TicketDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ParseTicketDraft extracts the first JSON object from reply, tolerating code
// fences and surrounding prose. Unknown priorities are dropped.
func ParseTicketDraft(reply string) (TicketDraft, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return TicketDraft{}, ErrNoDraft
	}

	var d TicketDraft
	if err := sonic.UnmarshalString(reply[start:end+1], &d); err != nil {
		return TicketDraft{}, ErrNoDraft
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Priority = strings.ToLower(strings.TrimSpace(d.Priority))
	switch d.Priority {
	case "low", "medium", "high", "urgent":
	default:
		d.Priority = ""
	}
	if d.Title == "" && d.Description == "" {
		return TicketDraft{}, ErrNoDraft
	}
	return d, nil
}

// FallbackDraft builds a draft straight from source text when the model reply is unusable.
func FallbackDraft(source string) TicketDraft {
	source = strings.TrimSpace(source)
	title := source
	if i := strings.IndexAny(title, ".\n?!"); i > 0 {
		title = title[:i]
	}
	if r := []rune(title); len(r) > 80 {
		title = strings.TrimSpace(string(r[:77])) + "..."
	}
	return TicketDraft{Title: title, Description: source}
}
