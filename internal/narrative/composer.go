// Package narrative turns an aggregated summary into an analyst brief and
// answers follow-up questions about it. The language model sits behind the
// Model interface; a failure here never touches the summary or the views.
package narrative

import (
	"context"
	"errors"
	"time"

	"palatlas-go/internal/logger"
	"palatlas-go/internal/metrics"
	"palatlas-go/internal/types"
)

const (
	turnAnalysis = "analysis"
	turnChat     = "chat"
)

type Composer struct {
	model Model
	log   *logger.Logger
}

func NewComposer(m Model, log *logger.Logger) *Composer {
	return &Composer{model: m, log: log.Component("narrative")}
}

// Ready fails fast with ErrMissingCredential when no usable model is wired.
func (c *Composer) Ready() error {
	if c == nil || c.model == nil {
		return ErrMissingCredential
	}
	if cm, ok := c.model.(interface{ Configured() bool }); ok && !cm.Configured() {
		return ErrMissingCredential
	}
	return nil
}

// Analyze writes the sectioned market brief for s.
func (c *Composer) Analyze(ctx context.Context, s types.Summary) (string, error) {
	return c.complete(ctx, turnAnalysis, BuildAnalysisPrompt(s))
}

// Answer responds to question using a previously produced analysis.
func (c *Composer) Answer(ctx context.Context, city, country, analysis, question string) (string, error) {
	return c.complete(ctx, turnChat, BuildChatPrompt(city, country, analysis, question))
}

func (c *Composer) complete(ctx context.Context, turn, prompt string) (string, error) {
	if err := c.Ready(); err != nil {
		metrics.NarrativeRequests.WithLabelValues(turn, "unconfigured").Inc()
		return "", err
	}
	start := time.Now()
	text, err := c.model.Complete(ctx, prompt)
	entry := c.log.WithField("turn", turn).
		WithField("prompt_len", len(prompt)).
		WithField("duration_ms", time.Since(start).Milliseconds())
	if err == nil && text == "" {
		err = ErrEmptyOutput
	}
	if err != nil {
		metrics.NarrativeRequests.WithLabelValues(turn, "error").Inc()
		entry.WithField("error", err.Error()).Error("narrative request failed")
		if !errors.Is(err, ErrMissingCredential) && !errors.Is(err, ErrUpstream) && !errors.Is(err, ErrEmptyOutput) {
			err = errors.Join(ErrUpstream, err)
		}
		return "", err
	}
	metrics.NarrativeRequests.WithLabelValues(turn, "ok").Inc()
	entry.WithField("output_len", len(text)).Info("narrative produced")
	return text, nil
}
