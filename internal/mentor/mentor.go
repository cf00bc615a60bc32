// Package mentor produces short, solution-free hints for a learner's code.
//
// A hint comes from the Gemini generateContent API when an API key is
// configured, and from canned copy otherwise. Hint never fails: every error
// path degrades to a fallback hint so the editor always has something to
// show.
package mentor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/pulsepy/internal/origin"
)

// Model names.
const (
	DefaultModel   = "gemini-1.5-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	FallbackModel  = "mentor-fallback"
)

// Tones tell the frontend how to style the hint bubble.
const (
	ToneSpark = "spark"
	ToneInfo  = "info"
	ToneCalm  = "calm"
)

// Canned hints.
const (
	MsgNoCode  = "Drop some code so I can help!"
	MsgOffline = "Mentor is offline. Focus on matching the expected output first!"
	MsgHiccup  = "Mentor had a hiccup. Check your loop length or print spacing while we reconnect."
)

const (
	defaultTitle        = "Untitled challenge"
	defaultInstructions = "Offer one short hint."
)

// HintRequest is what the editor sends after a run.
type HintRequest struct {
	Code               string `json:"code"`
	ChallengeTitle     string `json:"challengeTitle"`
	Description        string `json:"description"`
	Rubric             string `json:"rubric"`
	MentorInstructions string `json:"mentorInstructions"`
	Stdout             string `json:"stdout"`
	Stderr             string `json:"stderr"`
	ExpectedOutput     string `json:"expectedOutput"`
}

func (r HintRequest) withDefaults() HintRequest {
	if r.ChallengeTitle == "" {
		r.ChallengeTitle = defaultTitle
	}
	if r.MentorInstructions == "" {
		r.MentorInstructions = defaultInstructions
	}
	return r
}

// Hint is the response shown in the editor.
type Hint struct {
	Hint  string `json:"hint"`
	Tone  string `json:"tone"`
	Model string `json:"model"`
}

func fallback(message, tone string) Hint {
	return Hint{Hint: message, Tone: tone, Model: FallbackModel}
}

// Config configures a Client.
type Config struct {
	APIKey string
	// BaseURLs are tried in order through the origin fallback client.
	BaseURLs []string
	Model    string
}

// Client asks the model for hints.
type Client struct {
	origins *origin.Client
	apiKey  string
	bases   []string
	model   string
	logger  *slog.Logger
}

// NewClient creates a Client. Empty BaseURLs and Model fall back to the
// public Gemini endpoint and DefaultModel.
func NewClient(cfg Config, origins *origin.Client, logger *slog.Logger) *Client {
	bases := origin.Normalize(cfg.BaseURLs)
	if len(bases) == 0 {
		bases = []string{DefaultBaseURL}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		origins: origins,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		bases:   bases,
		model:   model,
		logger:  logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// generateRequest / generateResponse are the subset of the generateContent
// wire format we use.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Hint returns a hint for req. It never returns an error.
func (c *Client) Hint(ctx context.Context, req HintRequest) Hint {
	if strings.TrimSpace(req.Code) == "" {
		return fallback(MsgNoCode, ToneSpark)
	}
	if !c.Enabled() {
		return fallback(MsgOffline, ToneInfo)
	}

	req = req.withDefaults()
	text, err := c.generate(ctx, req)
	if err != nil {
		c.logger.Error("mentor hint failed", slog.String("error", err.Error()))
		return fallback(MsgHiccup, ToneCalm)
	}

	hint := sanitizeHint(text)
	if hint == "" {
		hint = fallbackCopy(req.Stdout, req.Stderr)
	}

	tone := ToneSpark
	if req.Stderr != "" {
		tone = ToneCalm
	}
	return Hint{
		Hint:  hint,
		Tone:  tone,
		Model: fmt.Sprintf("Gemini (%s)", c.model),
	}
}

// generate calls generateContent and returns the first candidate's text.
// The API key travels in the x-goog-api-key header rather than the query
// string, so it never shows up in URLs the origin client logs.
func (c *Client) generate(ctx context.Context, req HintRequest) (string, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return "", fmt.Errorf("mentor: building prompt: %w", err)
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}

	resp, err := c.origins.RequestWithFallback(ctx, c.bases,
		fmt.Sprintf("/v1beta/models/%s:generateContent", c.model),
		origin.Request{
			Method: http.MethodPost,
			Header: http.Header{
				"Content-Type":   {"application/json"},
				"X-Goog-Api-Key": {c.apiKey},
			},
			Body: body,
		},
	)
	if err != nil {
		return "", fmt.Errorf("mentor: calling model: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("mentor: model returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("mentor: decoding model response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", nil
	}

	texts := make([]string, 0, len(out.Candidates[0].Content.Parts))
	for _, p := range out.Candidates[0].Content.Parts {
		texts = append(texts, p.Text)
	}
	return strings.TrimSpace(strings.Join(texts, " ")), nil
}
