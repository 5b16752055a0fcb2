package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palatlas-go/internal/logger"
	"palatlas-go/internal/types"
)

func sampleSummary() types.Summary {
	brands := types.NewTally()
	for i := range 10 {
		for range 10 - i {
			brands.Add(fmt.Sprintf("cat%d", i))
		}
	}
	return types.Summary{
		City:            "Lisbon",
		Country:         "PT",
		Brands:          make([]types.BrandSample, 2),
		Places:          make([]types.PlaceSample, 3),
		BrandCategories: brands,
		PlaceCategories: types.NewTally(),
		TopRatedPlaces: []types.RankedEntity{
			{Name: "Tasca", MetricValue: 4.9, TagsPreview: []string{"restaurant", "portuguese"}},
			{Name: "Cafe", MetricValue: 4.5, TagsPreview: []string{}},
			{Name: "Bar", MetricValue: 4.0, TagsPreview: []string{"bar"}},
			{Name: "Fourth", MetricValue: 3.9, TagsPreview: []string{}},
		},
		PopularBrands: []types.RankedEntity{
			{Name: "Big", MetricValue: 0.987, TagsPreview: []string{"retail"}},
			{Name: "Unknown", MetricValue: 0, TagsPreview: []string{}},
		},
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	p := BuildAnalysisPrompt(sampleSummary())

	assert.Contains(t, p, "**Location:** Lisbon, PT")
	assert.Contains(t, p, "**Data Scope:** 2 brands, 3 businesses analyzed")
	assert.Contains(t, p, "• cat0: 10 businesses")
	assert.Contains(t, p, "• cat7: 3 businesses")
	assert.NotContains(t, p, "cat8")
	assert.Contains(t, p, "No category data available")
	assert.Contains(t, p, "• Tasca (Rating: 4.9, Categories: restaurant, portuguese)")
	assert.Contains(t, p, "• Bar (Rating: 4, Categories: bar)")
	assert.NotContains(t, p, "Fourth")
	assert.Contains(t, p, "• Big (Popularity: 98.7%, Categories: retail)")
	assert.Contains(t, p, "• Unknown (Popularity: N/A, Categories: )")
	for _, section := range []string{"MARKET OVERVIEW", "BUSINESS DIVERSITY", "QUALITY METRICS", "OPPORTUNITY LANDSCAPE", "COMPETITIVE DYNAMICS", "CONSUMER INSIGHTS", "EXECUTIVE SUMMARY"} {
		assert.Contains(t, p, "**"+section+"**")
	}
	assert.Contains(t, p, "350-450 words")
}

func TestBuildAnalysisPrompt_EmptySummary(t *testing.T) {
	p := BuildAnalysisPrompt(types.Summary{City: "X", Country: "YY"})
	assert.Contains(t, p, "No rating data available")
	assert.Contains(t, p, "No brand data available")
}

func TestBuildChatPrompt(t *testing.T) {
	p := BuildChatPrompt("Lisbon", "PT", "prior brief", "Where should I open a cafe?")
	assert.Contains(t, p, "business intelligence specialist for Lisbon, PT")
	assert.Contains(t, p, "prior brief")
	assert.Contains(t, p, chatMarker+" Where should I open a cafe?")
	assert.Contains(t, p, "100-150 words")
	assert.Contains(t, p, "business insights about Lisbon.")
}

func newModel(t *testing.T, h http.HandlerFunc) *ResponsesModel {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewResponsesModel(ResponsesConfig{
		BaseURL:      srv.URL + "/v1/",
		APIKey:       "sk-test",
		Model:        "gpt-test",
		HTTPTimeout:  5 * time.Second,
		MaxRetryTime: 5 * time.Second,
	}, logger.Discard())
}

func TestResponsesModel_ParsesOutputShapes(t *testing.T) {
	cases := map[string]string{
		"output_text": `{"output_text":" brief "}`,
		"output":      `{"output":[{"content":[{"type":"output_text","text":"brief"}]}]}`,
		"choices":     `{"choices":[{"message":{"content":"brief"}}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			m := newModel(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/responses", r.URL.Path)
				assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
				var req map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "gpt-test", req["model"])
				assert.Equal(t, "hello", req["input"])
				_, _ = w.Write([]byte(body))
			})
			out, err := m.Complete(context.Background(), "hello")
			require.NoError(t, err)
			assert.Equal(t, "brief", out)
		})
	}
}

func TestResponsesModel_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	m := newModel(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad model"}`))
	})
	_, err := m.Complete(context.Background(), "hello")

	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestResponsesModel_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	m := newModel(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"output_text":"ok"}`))
	})
	out, err := m.Complete(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResponsesModel_MissingCredential(t *testing.T) {
	m := NewResponsesModel(ResponsesConfig{BaseURL: "http://unused"}, logger.Discard())
	_, err := m.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

type stubModel struct {
	text   string
	err    error
	prompt string
}

func (s *stubModel) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func TestComposer(t *testing.T) {
	stub := &stubModel{text: "analysis text"}
	c := NewComposer(stub, logger.Discard())

	require.NoError(t, c.Ready())
	out, err := c.Analyze(context.Background(), sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, "analysis text", out)
	assert.Contains(t, stub.prompt, "BUSINESS ENVIRONMENT ANALYSIS BRIEF")

	_, err = c.Answer(context.Background(), "Lisbon", "PT", "analysis text", "why?")
	require.NoError(t, err)
	assert.Contains(t, stub.prompt, chatMarker+" why?")
}

func TestComposer_Failures(t *testing.T) {
	var nilComposer *Composer
	assert.ErrorIs(t, nilComposer.Ready(), ErrMissingCredential)

	unconfigured := NewComposer(NewResponsesModel(ResponsesConfig{}, logger.Discard()), logger.Discard())
	assert.ErrorIs(t, unconfigured.Ready(), ErrMissingCredential)

	failing := NewComposer(&stubModel{err: errors.New("socket closed")}, logger.Discard())
	_, err := failing.Analyze(context.Background(), types.Summary{})
	assert.ErrorIs(t, err, ErrUpstream)

	empty := NewComposer(&stubModel{}, logger.Discard())
	_, err = empty.Analyze(context.Background(), types.Summary{})
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestMockModel(t *testing.T) {
	c := NewComposer(MockModel{}, logger.Discard())
	brief, err := c.Analyze(context.Background(), types.Summary{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(brief, "**MARKET OVERVIEW**"))

	answer, err := c.Answer(context.Background(), "A", "B", brief, "q")
	require.NoError(t, err)
	assert.NotContains(t, answer, "MARKET OVERVIEW")
}
