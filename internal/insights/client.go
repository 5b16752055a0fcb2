package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"palatlas-go/internal/logger"
	"palatlas-go/internal/metrics"
	"palatlas-go/internal/types"
)

var (
	ErrAuth      = errors.New("insights api rejected credentials")
	ErrTransient = errors.New("insights api request failed")
	ErrMalformed = errors.New("insights api returned a malformed body")
)

// Config is built once at startup and handed to NewClient.
type Config struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
	MaxAttempts int
	BackoffUnit time.Duration
}

type Query struct {
	Kind         types.Kind
	City         string
	CountryCode  string
	Limit        int
	SignalTags   string
	SignalWeight float64
}

type Client struct {
	cfg   Config
	http  *http.Client
	log   *logger.Logger
	timer backoff.Timer
}

type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimer replaces the backoff timer; tests use it to observe waits.
func WithTimer(t backoff.Timer) Option {
	return func(c *Client) { c.timer = t }
}

func NewClient(cfg Config, log *logger.Logger, opts ...Option) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 20 * time.Second
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.HTTPTimeout},
		log:  log.Component("insights-client"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch queries the insights API for one entity kind. Any returned error
// means the caller should treat the collection as absent.
func (c *Client) Fetch(ctx context.Context, q Query) (*types.Collection, error) {
	log := c.log.WithFields(logrus.Fields{
		"kind":    q.Kind,
		"city":    q.City,
		"country": q.CountryCode,
		"limit":   q.Limit,
	})
	endpoint, err := c.buildURL(q)
	if err != nil {
		return nil, fmt.Errorf("build insights url: %w", err)
	}
	log.Info("fetching entities")

	var (
		out     *types.Collection
		attempt int
	)
	op := func() error {
		attempt++
		coll, err := c.do(ctx, endpoint)
		if err != nil {
			metrics.FetchAttempts.WithLabelValues(string(q.Kind), outcome(err)).Inc()
			log.WithField("attempt", attempt).WithField("max_attempts", c.cfg.MaxAttempts).
				WithField("error", err.Error()).Warn("insights request failed")
			if errors.Is(err, ErrAuth) {
				return backoff.Permanent(err)
			}
			return err
		}
		metrics.FetchAttempts.WithLabelValues(string(q.Kind), "ok").Inc()
		out = coll
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.WithField("retry_in", wait.String()).Info("retrying insights request")
	}

	if err := backoff.RetryNotifyWithTimer(op, c.policy(ctx), notify, c.timer); err != nil {
		metrics.FetchFailures.WithLabelValues(string(q.Kind), outcome(err)).Inc()
		log.WithField("attempts", attempt).WithField("error", err.Error()).Error("giving up on insights request")
		return nil, err
	}

	names := make([]string, 0, 3)
	for _, e := range out.Entities() {
		if len(names) == 3 {
			break
		}
		n, _ := e["name"].(string)
		names = append(names, n)
	}
	log.WithField("count", len(out.Entities())).WithField("first", names).Info("entities fetched")
	return out, nil
}

// policy waits unit, 2*unit, 4*unit... between attempts with no jitter and
// stops after MaxAttempts attempts in total.
func (c *Client) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BackoffUnit
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(1<<30) * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	var bo backoff.BackOff = backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1))
	if c.cfg.BackoffUnit == 0 {
		bo = backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(c.cfg.MaxAttempts-1))
	}
	return backoff.WithContext(bo, ctx)
}

func (c *Client) buildURL(q Query) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	v := u.Query()
	v.Set("filter.type", q.Kind.URN())
	v.Set("filter.location.query", q.City)
	v.Set("filter.geocode.country_code", q.CountryCode)
	v.Set("take", strconv.Itoa(q.Limit))
	if tags := SplitSignalTags(q.SignalTags); len(tags) > 0 {
		for _, t := range tags {
			v.Add("signal.interests.tags", t)
		}
		weight := q.SignalWeight
		if weight == 0 {
			weight = 1.0
		}
		v.Set("signal.interests.tags.weight", strconv.FormatFloat(weight, 'f', -1, 64))
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// SplitSignalTags turns "a,b" into [a b]; a bare tag is sent as-is.
func SplitSignalTags(s string) []string {
	if s == "" {
		return nil
	}
	if !strings.Contains(s, ",") {
		return []string{s}
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Client) do(ctx context.Context, endpoint string) (*types.Collection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransient, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, truncate(body, 200))
	}

	return decodeCollection(body)
}

func decodeCollection(body []byte) (*types.Collection, error) {
	var probe struct {
		Results *struct {
			Entities json.RawMessage `json:"entities"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if probe.Results == nil || len(probe.Results.Entities) == 0 || string(probe.Results.Entities) == "null" {
		return nil, fmt.Errorf("%w: missing results.entities", ErrMalformed)
	}
	var coll types.Collection
	if err := json.Unmarshal(body, &coll); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &coll, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transient"
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
