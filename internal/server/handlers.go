package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"palatlas-go/internal/logger"
	"palatlas-go/internal/metrics"
	"palatlas-go/internal/pipeline"
	"palatlas-go/internal/report"
)

const maxBodyBytes = 4 << 20

type handler struct {
	svc Service
	log *logger.Logger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

func (h *handler) index(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"endpoints": map[string]string{
			"POST /api/visualizations": "chart-ready views for {city, country, limit}",
			"POST /api/analysis":       "analyst brief for {city, country, limit}",
			"POST /api/chat":           "follow-up answer for {city, country, message, analysis?}",
			"POST /api/compare":        "brand popularity across {localities, limit} or an .xlsx of city/country rows",
			"POST /api/export":         "summary workbook for {city, country, limit}",
			"GET /api/health":          "liveness",
			"GET /metrics":             "prometheus metrics",
		},
	})
}

func (h *handler) visualizations(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if !h.decode(w, r, localitySchema, &req) {
		return
	}
	out, err := h.svc.Visualizations(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.WithRequest(r).WithField("city", req.City).WithField("views", len(out)).Info("visualizations generated")
	respondWithJSON(w, http.StatusOK, out)
}

func (h *handler) analysis(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if !h.decode(w, r, localitySchema, &req) {
		return
	}
	out, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ChatRequest
	if !h.decode(w, r, chatSchema, &req) {
		return
	}
	out, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *handler) compare(w http.ResponseWriter, r *http.Request) {
	var req pipeline.CompareRequest
	if isWorkbook(r) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "could not read workbook")
			return
		}
		locs, err := report.ReadLocalities(bytes.NewReader(body))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Localities = locs
		if q := r.URL.Query().Get("limit"); q != "" {
			if req.Limit, err = strconv.Atoi(q); err != nil {
				respondWithError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
		}
		if !h.validate(w, r, compareSchema, req) {
			return
		}
	} else if !h.decode(w, r, compareSchema, &req) {
		return
	}

	chart, err := h.svc.Compare(r.Context(), req)
	if errors.Is(err, pipeline.ErrNoData) {
		respondWithError(w, http.StatusNotFound, "no locality returned brand data")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chart)
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if !h.decode(w, r, localitySchema, &req) {
		return
	}
	summary, err := h.svc.Summarize(r.Context(), req)
	if errors.Is(err, pipeline.ErrNoData) {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.Write(&buf, summary); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(summary)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// decode reads a JSON body, validates it against schema and fills v.
// An empty body is treated as an empty object.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, schema map[string]any, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "could not read request body")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		h.log.WithRequest(r).WithField("error", err.Error()).Warn("invalid request body")
		respondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if !h.validate(w, r, schema, raw) {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// validate checks data against schema and writes the 400 itself on failure.
func (h *handler) validate(w http.ResponseWriter, r *http.Request, schema map[string]any, data any) bool {
	if err := validateData(schema, data); err != nil {
		h.log.WithRequest(r).WithField("error", err.Error()).Warn("request failed validation")
		respondWithError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// fail maps caller mistakes to 400 and everything else to 500.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, pipeline.ErrBadRequest) {
		status = http.StatusBadRequest
	}
	entry := h.log.WithRequest(r).WithField("error", err.Error())
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	respondWithError(w, status, err.Error())
}

func isWorkbook(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == report.ContentType
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

func observeDuration(route string, status int, d time.Duration) {
	metrics.RequestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}
