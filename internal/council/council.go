package council

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drakos74/goldmind/internal/api"
	"github.com/drakos74/goldmind/internal/model"
)

// Council is the fixed set of personas sharing one analysis collaborator.
type Council struct {
	personas []Persona
	analyst  api.Analyst
	timeout  time.Duration
}

// New creates a council over the given analysis collaborator.
func New(analyst api.Analyst, timeout time.Duration, personas ...Persona) *Council {
	if len(personas) == 0 {
		personas = Members()
	}
	return &Council{
		personas: personas,
		analyst:  analyst,
		timeout:  timeout,
	}
}

// Evaluate gathers one vote per persona.
// Personas are independent and evaluated in parallel, a persona that fails
// or does not respond within the timeout degrades to a HOLD vote.
func (c *Council) Evaluate(ctx context.Context, brief string, candles []model.Candle) []model.Vote {
	votes := make([]model.Vote, len(c.personas))

	type result struct {
		index   int
		verdict api.Verdict
		err     error
	}
	out := make(chan result, len(c.personas))

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	for i, p := range c.personas {
		go func(i int, p Persona) {
			verdict, err := c.analyst.Analyze(cctx, p.Role, brief, candles)
			out <- result{index: i, verdict: verdict, err: err}
		}(i, p)
	}

	for range c.personas {
		select {
		case r := <-out:
			p := c.personas[r.index]
			if r.err != nil {
				log.Warn().Err(r.err).Str("persona", p.Name).Msg("analysis failed")
				votes[r.index] = holdVote(p.Name, fmt.Sprintf("analysis failed: %v", r.err))
				continue
			}
			votes[r.index] = model.Vote{
				Persona:    p.Name,
				Action:     r.verdict.Action,
				StopLoss:   r.verdict.StopLoss,
				TakeProfit: r.verdict.TakeProfit,
				Reason:     r.verdict.Reason,
			}
		case <-cctx.Done():
			// late personas count as abstaining
			for i, v := range votes {
				if v.Persona == "" {
					votes[i] = holdVote(c.personas[i].Name, "no response within timeout")
				}
			}
			return votes
		}
	}
	return votes
}

func holdVote(persona, reason string) model.Vote {
	return model.Vote{
		Persona: persona,
		Action:  model.Hold,
		Reason:  reason,
	}
}

// Brief renders the shared market context handed to every persona.
func Brief(snapshot model.Snapshot, h1, m15 model.Trend, patterns []string) string {
	p := "None"
	if len(patterns) > 0 {
		p = strings.Join(patterns, ", ")
	}
	return fmt.Sprintf(
		"Price: %.2f\nH1 Trend: %s\nM15 Trend: %s\nRSI (14): %.2f\nATR (14): %.2f\nPatterns Detected: %s\nBollinger Status: Lower=%.2f, Upper=%.2f\n",
		snapshot.Price, h1, m15, snapshot.RSI, snapshot.ATR, p,
		snapshot.BollingerDown, snapshot.BollingerUp,
	)
}
