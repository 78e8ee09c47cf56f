package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/drakos74/goldmind/internal/api"
	"github.com/drakos74/goldmind/internal/model"
)

const (
	defaultURL   = "https://generativelanguage.googleapis.com"
	defaultModel = "gemini-2.0-flash"

	temperature = 0.1
	recentBars  = 5
)

// Client is the analysis collaborator backed by the gemini REST API.
// One client is shared by all personas, the rate limiter spreads the
// request budget across them.
type Client struct {
	rest    *resty.Client
	model   string
	key     string
	limiter *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithURL points the client at a different endpoint, used in tests.
func WithURL(url string) Option {
	return func(c *Client) {
		c.rest.SetBaseURL(url)
	}
}

// WithModel selects the generation model.
func WithModel(m string) Option {
	return func(c *Client) {
		c.model = m
	}
}

// WithBudget caps the requests per minute across all personas.
func WithBudget(rpm float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rpm/60.0), 1)
	}
}

// New creates a gemini client.
func New(key string, timeout time.Duration, opts ...Option) *Client {
	rest := resty.New()
	rest.SetBaseURL(defaultURL)
	rest.SetTimeout(timeout)

	c := &Client{
		rest:    rest,
		model:   defaultModel,
		key:     key,
		limiter: rate.NewLimiter(rate.Limit(0.5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// verdict is the strict response shape required from the model.
type verdict struct {
	Action     string  `json:"action"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Reason     string  `json:"reason"`
}

// Analyze implements api.Analyst.
func (c *Client) Analyze(ctx context.Context, role string, market string, candles []model.Candle) (api.Verdict, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return api.Verdict{}, fmt.Errorf("could not respect request budget: %w", err)
	}

	var response generateResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("key", c.key).
		SetBody(generateRequest{
			Contents:         []content{{Parts: []part{{Text: prompt(role, market, candles)}}}},
			GenerationConfig: generationConfig{Temperature: temperature},
		}).
		SetResult(&response).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return api.Verdict{}, fmt.Errorf("could not call analysis service: %w", err)
	}
	if resp.IsError() {
		return api.Verdict{}, fmt.Errorf("analysis service returned %s", resp.Status())
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return api.Verdict{}, fmt.Errorf("analysis service returned no candidates")
	}
	return parse(response.Candidates[0].Content.Parts[0].Text)
}

// parse enforces the strict response shape contract.
func parse(text string) (api.Verdict, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var v verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return api.Verdict{}, fmt.Errorf("malformed analysis response: %w", err)
	}
	action := model.ParseType(v.Action)
	if action == model.NoType {
		return api.Verdict{}, fmt.Errorf("malformed analysis action '%s'", v.Action)
	}
	return api.Verdict{
		Action:     action,
		StopLoss:   v.StopLoss,
		TakeProfit: v.TakeProfit,
		Reason:     v.Reason,
	}, nil
}

func prompt(role, market string, candles []model.Candle) string {
	if len(candles) > recentBars {
		candles = candles[len(candles)-recentBars:]
	}
	bars := make([]string, len(candles))
	for i, c := range candles {
		bars[i] = fmt.Sprintf("O:%.2f H:%.2f L:%.2f C:%.2f", c.Open, c.High, c.Low, c.Close)
	}
	return fmt.Sprintf(`%s

MARKET CONTEXT:
%s
RECENT CANDLES (Open/High/Low/Close):
%s

TASK:
Analyze the data based on your specific ROLE.
Output ONLY valid JSON.

FORMAT:
{
  "action": "BUY" or "SELL" or "HOLD",
  "sl": suggested stop loss price or 0,
  "tp": suggested take profit price or 0,
  "reason": "Short explanation (max 10 words)"
}`, role, market, strings.Join(bars, "\n"))
}
