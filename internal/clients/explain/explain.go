// Package explain phrases compliance review results as client-readable
// prose using Gemini. It is strictly decorative: reviews are decided
// before it runs and proceed unchanged when it is unavailable.
package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/falconadvisor/falcon/internal/modules/compliance"
)

const systemInstruction = `You are a compliance assistant at a retail investment advisory firm.
Summarize the review result below for the client in two or three plain sentences.
State the decision first. Do not give investment advice. Do not invent rules that are not listed.`

// Client generates review explanations via the Gemini API. The genai
// client reads its API key from the environment (GEMINI_API_KEY).
type Client struct {
	genai *genai.Client
	model string
	log   zerolog.Logger
}

// NewClient initializes the Gemini client. model selects which Gemini
// model to use, e.g. "gemini-2.0-flash".
func NewClient(ctx context.Context, model string, log zerolog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	return &Client{
		genai: client,
		model: model,
		log:   log.With().Str("client", "explain").Logger(),
	}, nil
}

// Explain produces a short prose summary of a finished review.
func (c *Client) Explain(ctx context.Context, result *compliance.CheckResult) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(reviewPrompt(result)), config)
	if err != nil {
		return "", fmt.Errorf("explanation request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model %s", c.model)
	}

	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// reviewPrompt flattens a review into the plain-text form the model sees.
func reviewPrompt(result *compliance.CheckResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trade: %s\n", result.Symbol)
	fmt.Fprintf(&b, "Decision: %s\n", result.Decision)
	fmt.Fprintf(&b, "Score: %.0f out of 100\n", result.Score)

	violations := result.Violations()
	if len(violations) == 0 {
		b.WriteString("Findings: none, all checks passed\n")
		return b.String()
	}

	b.WriteString("Findings:\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- [%s %s] %s\n", v.Severity, v.Outcome, v.Detail)
	}
	return b.String()
}
