// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"palatlas-go/internal/actionable"
	"palatlas-go/internal/aggregator"
	"palatlas-go/internal/insights"
	"palatlas-go/internal/logger"
	"palatlas-go/internal/narrative"
	"palatlas-go/internal/normalizer"
	"palatlas-go/internal/types"
	"palatlas-go/internal/views"
)

var (
	// ErrNoData means neither brands nor places came back for a locality.
	ErrNoData = errors.New("no insights data for locality")
	// ErrBadRequest wraps caller input problems.
	ErrBadRequest = errors.New("invalid request")
)

var tracer = otel.Tracer("palatlas-go/pipeline")

// sampleLogSize is how many normalized entities per kind are logged at debug.
const sampleLogSize = 3

// Fetcher is satisfied by *insights.Client.
type Fetcher interface {
	Fetch(ctx context.Context, q insights.Query) (*types.Collection, error)
}

type Config struct {
	SampleCap            int
	DefaultLimit         int
	DefaultAnalysisLimit int
}

type Request struct {
	City       string  `json:"city"`
	Country    string  `json:"country"`
	Limit      int     `json:"limit"`
	SignalTags string  `json:"signal_tags,omitempty"`
	Weight     float64 `json:"signal_weight,omitempty"`
}

// Snapshot is the normalized data one request works on.
type Snapshot struct {
	City     string
	Country  string
	Locality string
	Brands   []types.Entity
	Places   []types.Entity
}

func (s Snapshot) Empty() bool {
	return len(s.Brands) == 0 && len(s.Places) == 0
}

// label is the locality name used for titles and seeding.
func (s Snapshot) label() string {
	if s.Locality != "" {
		return s.Locality
	}
	return s.City
}

type Pipeline struct {
	fetcher  Fetcher
	composer *narrative.Composer
	cfg      Config
	log      *logger.Logger
}

func New(f Fetcher, c *narrative.Composer, cfg Config, log *logger.Logger) *Pipeline {
	if cfg.SampleCap <= 0 {
		cfg.SampleCap = aggregator.DefaultSampleCap
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.DefaultAnalysisLimit <= 0 {
		cfg.DefaultAnalysisLimit = 30
	}
	return &Pipeline{fetcher: f, composer: c, cfg: cfg, log: log.Component("pipeline")}
}

func (r Request) validate() error {
	if strings.TrimSpace(r.City) == "" {
		return fmt.Errorf("%w: city is required", ErrBadRequest)
	}
	if r.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrBadRequest)
	}
	return nil
}

func (r Request) withDefaultLimit(def int) Request {
	if r.Limit == 0 {
		r.Limit = def
	}
	return r
}

// Snapshot fetches brands then places and normalizes both. A failed fetch
// yields an empty collection for that kind; it is never an error.
func (p *Pipeline) Snapshot(ctx context.Context, req Request) Snapshot {
	ctx, span := tracer.Start(ctx, "pipeline.snapshot", trace.WithAttributes(
		attribute.String("city", req.City),
		attribute.String("country", req.Country),
		attribute.Int("limit", req.Limit),
	))
	defer span.End()

	start := time.Now()
	snap := Snapshot{City: req.City, Country: req.Country}
	for _, kind := range []types.Kind{types.KindBrand, types.KindPlace} {
		coll, err := p.fetcher.Fetch(ctx, insights.Query{
			Kind:         kind,
			City:         req.City,
			CountryCode:  req.Country,
			Limit:        req.Limit,
			SignalTags:   req.SignalTags,
			SignalWeight: req.Weight,
		})
		if err != nil {
			span.RecordError(err, trace.WithAttributes(attribute.String("kind", string(kind))))
			p.log.WithField("kind", kind).WithField("city", req.City).
				WithField("error", err.Error()).Warn("treating collection as absent")
		}
		if snap.Locality == "" {
			snap.Locality = coll.LocalityName()
		}
		entities := normalizer.NormalizeAll(coll, kind)
		if p.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			for _, e := range entities[:min(sampleLogSize, len(entities))] {
				p.log.WithField("kind", kind).Debug(normalizer.Describe(e))
			}
		}
		if kind == types.KindBrand {
			snap.Brands = entities
		} else {
			snap.Places = entities
		}
	}
	span.SetAttributes(
		attribute.Int("brands", len(snap.Brands)),
		attribute.Int("places", len(snap.Places)),
	)
	p.log.WithField("city", req.City).
		WithField("brands", len(snap.Brands)).
		WithField("places", len(snap.Places)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("snapshot ready")
	return snap
}

// Visualizations runs every per-locality view over one snapshot.
func (p *Pipeline) Visualizations(ctx context.Context, req Request) (views.Results, error) {
	req = req.withDefaultLimit(p.cfg.DefaultLimit)
	if err := req.validate(); err != nil {
		return nil, err
	}
	snap := p.Snapshot(ctx, req)
	return views.Generate(views.Input{
		Locality: snap.label(),
		Brands:   snap.Brands,
		Places:   snap.Places,
	}, p.log), nil
}

// Summarize fetches and aggregates without calling the language model.
func (p *Pipeline) Summarize(ctx context.Context, req Request) (types.Summary, error) {
	req = req.withDefaultLimit(p.cfg.DefaultAnalysisLimit)
	if err := req.validate(); err != nil {
		return types.Summary{}, err
	}
	snap := p.Snapshot(ctx, req)
	if snap.Empty() {
		return types.Summary{}, fmt.Errorf("%w: %s, %s", ErrNoData, req.City, req.Country)
	}
	return p.summarize(snap), nil
}

func (p *Pipeline) summarize(snap Snapshot) types.Summary {
	return aggregator.Aggregate(aggregator.Input{
		City:      snap.City,
		Country:   snap.Country,
		Locality:  snap.Locality,
		Brands:    snap.Brands,
		Places:    snap.Places,
		SampleCap: p.cfg.SampleCap,
	})
}

type DataPoints struct {
	BrandsCount int `json:"brands_count"`
	PlacesCount int `json:"places_count"`
}

type Analysis struct {
	Success    bool                  `json:"success"`
	Analysis   string                `json:"analysis"`
	City       string                `json:"city"`
	Country    string                `json:"country"`
	DataPoints DataPoints            `json:"data_points"`
	ActionCard actionable.ActionCard `json:"action_card"`
}

// Analyze checks the model credential before any fetch, then aggregates and
// asks the composer for the brief.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (Analysis, error) {
	ctx, span := tracer.Start(ctx, "pipeline.analyze", trace.WithAttributes(attribute.String("city", req.City)))
	defer span.End()

	if err := p.composer.Ready(); err != nil {
		return Analysis{}, spanError(span, err)
	}
	summary, err := p.Summarize(ctx, req)
	if err != nil {
		return Analysis{}, spanError(span, err)
	}
	text, err := p.composer.Analyze(ctx, summary)
	if err != nil {
		return Analysis{}, spanError(span, fmt.Errorf("analysis failed: %w", err))
	}
	return Analysis{
		Success:    true,
		Analysis:   text,
		City:       req.City,
		Country:    req.Country,
		DataPoints: DataPoints{BrandsCount: summary.BrandsCount, PlacesCount: summary.PlacesCount},
		ActionCard: actionable.Generate(summary),
	}, nil
}

type ChatRequest struct {
	Request
	Message  string `json:"message"`
	Analysis string `json:"analysis,omitempty"`
}

type ChatReply struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	Analysis string `json:"analysis"`
}

// Chat answers a follow-up question. A supplied analysis is reused;
// otherwise a fresh one is produced first.
func (p *Pipeline) Chat(ctx context.Context, req ChatRequest) (ChatReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return ChatReply{}, fmt.Errorf("%w: message is required", ErrBadRequest)
	}
	if err := p.composer.Ready(); err != nil {
		return ChatReply{}, err
	}
	analysis := req.Analysis
	if strings.TrimSpace(analysis) == "" {
		a, err := p.Analyze(ctx, req.Request)
		if err != nil {
			return ChatReply{}, err
		}
		analysis = a.Analysis
	}
	text, err := p.composer.Answer(ctx, req.City, req.Country, analysis, req.Message)
	if err != nil {
		return ChatReply{}, fmt.Errorf("chat response failed: %w", err)
	}
	return ChatReply{Success: true, Response: text, Analysis: analysis}, nil
}

type CompareRequest struct {
	Localities []views.Locality `json:"localities"`
	Limit      int              `json:"limit"`
}

// Compare fetches brands per locality and compares mean popularity.
func (p *Pipeline) Compare(ctx context.Context, req CompareRequest) (views.Chart, error) {
	if len(req.Localities) == 0 {
		return views.Chart{}, fmt.Errorf("%w: at least one locality is required", ErrBadRequest)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = p.cfg.DefaultLimit
	}
	ctx, span := tracer.Start(ctx, "pipeline.compare", trace.WithAttributes(
		attribute.Int("localities", len(req.Localities)),
	))
	defer span.End()

	chart, ok := views.BuildCityComparison(ctx, p, req.Localities, limit, p.log)
	if !ok {
		return views.Chart{}, spanError(span, ErrNoData)
	}
	return chart, nil
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Brands implements views.BrandSource.
func (p *Pipeline) Brands(ctx context.Context, city, country string, limit int) ([]types.Entity, error) {
	coll, err := p.fetcher.Fetch(ctx, insights.Query{
		Kind:        types.KindBrand,
		City:        city,
		CountryCode: country,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}
	return normalizer.NormalizeAll(coll, types.KindBrand), nil
}
