// Package compose drafts message subject and body text from an occasion,
// tone, and free-form context using an OpenAI-compatible chat API.
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sungwon/heartpost/internal/config"
	"github.com/sungwon/heartpost/internal/provider"
)

// Tone selects the voice of the drafted message.
type Tone string

const (
	ToneWarm      Tone = "warm"
	ToneFormal    Tone = "formal"
	ToneCasual    Tone = "casual"
	ToneHeartfelt Tone = "heartfelt"
)

// Occasion selects the kind of message being drafted.
type Occasion string

const (
	OccasionBirthday        Occasion = "birthday"
	OccasionAnniversary     Occasion = "anniversary"
	OccasionApology         Occasion = "apology"
	OccasionGratitude       Occasion = "gratitude"
	OccasionCongratulations Occasion = "congratulations"
	OccasionJustBecause     Occasion = "just_because"
	OccasionCustom          Occasion = "custom"
)

var toneDescriptions = map[Tone]string{
	ToneWarm:      "warm and friendly",
	ToneFormal:    "professional and respectful",
	ToneCasual:    "relaxed and conversational",
	ToneHeartfelt: "deeply emotional and sincere",
}

var occasionTemplates = map[Occasion]string{
	OccasionBirthday:        "a birthday message",
	OccasionAnniversary:     "an anniversary message",
	OccasionApology:         "an apology message",
	OccasionGratitude:       "a gratitude/thank you message",
	OccasionCongratulations: "a congratulations message",
	OccasionJustBecause:     "a thoughtful message for no particular occasion",
	OccasionCustom:          "a personalized message",
}

// DraftRequest describes what the user wants drafted.
type DraftRequest struct {
	Occasion      Occasion `json:"occasion"`
	RecipientName string   `json:"recipient_name,omitempty"`
	Tone          Tone     `json:"tone"`
	Context       string   `json:"context"`
}

// Draft is a generated subject and body pair.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Composer calls an OpenAI-compatible chat completions endpoint.
type Composer struct {
	baseURL string
	apiKey  string
	model   string
	referer string
	title   string
	client  provider.HTTPClient
}

// NewComposer creates a Composer from configuration.
func NewComposer(cfg config.ComposeConfig, client provider.HTTPClient) *Composer {
	return &Composer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		referer: cfg.Referer,
		title:   cfg.Title,
		client:  client,
	}
}

var (
	subjectPattern = regexp.MustCompile(`(?i)SUBJECT:\s*(.+)`)
	bodyPattern    = regexp.MustCompile(`(?is)BODY:\s*\n(.+)$`)
)

// Draft generates a subject and body for the request. The model is asked to
// answer in a fixed SUBJECT:/BODY: layout; a response that does not follow
// it is an error.
func (c *Composer) Draft(ctx context.Context, req DraftRequest) (*Draft, error) {
	occasionText, ok := occasionTemplates[req.Occasion]
	if !ok {
		return nil, fmt.Errorf("unknown occasion %q", req.Occasion)
	}
	toneText, ok := toneDescriptions[req.Tone]
	if !ok {
		return nil, fmt.Errorf("unknown tone %q", req.Tone)
	}

	prompt := buildPrompt(occasionText, toneText, req.RecipientName, req.Context)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.8,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, fmt.Errorf("compose: marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}
	if c.referer != "" {
		headers["HTTP-Referer"] = c.referer
	}
	if c.title != "" {
		headers["X-Title"] = c.title
	}

	resp, err := c.client.Do(&provider.HTTPRequest{
		Method:  "POST",
		URL:     c.baseURL + "/chat/completions",
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("compose: chat request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("compose: chat API returned status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(resp.Body, &completion); err != nil {
		return nil, fmt.Errorf("compose: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("compose: empty completion")
	}

	return parseDraft(completion.Choices[0].Message.Content)
}

// buildPrompt renders the drafting instructions. The guidelines mirror what
// the message wizard promises users about generated text.
func buildPrompt(occasionText, toneText, recipientName, userContext string) string {
	recipientText := ""
	if recipientName != "" {
		recipientText = " for " + recipientName
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert at writing heartfelt, personal messages for special occasions. Your goal is to help people express their emotions authentically and meaningfully.

Guidelines:
- Write in a %s tone
- Keep messages concise but impactful (2-4 paragraphs)
- Be specific and personal when context is provided
- Avoid clichés and generic phrases
- Make it feel genuine and from the heart
- Do not use emojis unless specifically requested
- Write in a way that sounds natural when read aloud

`, toneText)
	fmt.Fprintf(&b, `Write %s%s with a %s tone.

Context from the sender: %s

Please provide:
1. An appropriate email subject line (short and engaging)
2. The message body (warm, personal, and heartfelt)

Format your response exactly as follows:
SUBJECT: [your subject line here]

BODY:
[your message body here]`, occasionText, recipientText, toneText, userContext)

	return b.String()
}

// parseDraft extracts the SUBJECT: line and BODY: block from a completion.
func parseDraft(content string) (*Draft, error) {
	subjectMatch := subjectPattern.FindStringSubmatch(content)
	bodyMatch := bodyPattern.FindStringSubmatch(content)
	if subjectMatch == nil || bodyMatch == nil {
		return nil, fmt.Errorf("compose: response did not follow SUBJECT/BODY format")
	}

	subject := strings.TrimSpace(subjectMatch[1])
	// The subject capture is greedy across the line; cut at the first
	// newline in case the model ran SUBJECT and BODY together.
	if i := strings.IndexByte(subject, '\n'); i >= 0 {
		subject = strings.TrimSpace(subject[:i])
	}

	return &Draft{
		Subject: subject,
		Body:    strings.TrimSpace(bodyMatch[1]),
	}, nil
}

// chatRequest matches the OpenAI chat completions request schema.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse matches the subset of the completions response we read.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
