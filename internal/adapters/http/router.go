package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/retrieval-fusion/internal/core/domain"
	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
	"github.com/kirillkom/retrieval-fusion/internal/observability/metrics"
)

type Options struct {
	Service string

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int

	DefaultMaxChunks    int
	DefaultThreshold    float64
	AdvancedRAGEnabled  bool
	BackpressureTimeout time.Duration
}

type Router struct {
	builder ports.ContextBuilder
	metrics *metrics.ServerMetrics
	opts    Options
}

func NewRouter(builder ports.ContextBuilder, m *metrics.ServerMetrics, opts Options) *Router {
	if opts.Service == "" {
		opts.Service = "api"
	}
	if opts.BackpressureTimeout <= 0 {
		opts.BackpressureTimeout = 100 * time.Millisecond
	}
	return &Router{
		builder: builder,
		metrics: m,
		opts:    opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/context", rt.buildContext)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.BackpressureTimeout)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	handler = rt.metrics.Middleware(rt.opts.Service, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type contextRequest struct {
	Query               string   `json:"query"`
	DocumentIDs         []int64  `json:"document_ids"`
	ConversationLength  int      `json:"conversation_length"`
	MaxChunks           *int     `json:"max_chunks"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	UseAdvanced         *bool    `json:"use_advanced"`
}

func (rt *Router) buildContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	domainReq := domain.ContextRequest{
		Query:               req.Query,
		DocumentIDs:         req.DocumentIDs,
		ConversationLength:  req.ConversationLength,
		MaxChunks:           rt.opts.DefaultMaxChunks,
		SimilarityThreshold: rt.opts.DefaultThreshold,
		UseAdvanced:         rt.opts.AdvancedRAGEnabled,
	}
	if req.MaxChunks != nil {
		domainReq.MaxChunks = *req.MaxChunks
	}
	if req.SimilarityThreshold != nil {
		domainReq.SimilarityThreshold = *req.SimilarityThreshold
	}
	if req.UseAdvanced != nil {
		domainReq.UseAdvanced = *req.UseAdvanced
	}

	start := time.Now()
	result, err := rt.builder.BuildContext(r.Context(), domainReq)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		var open *domain.CircuitOpenError
		if errors.As(err, &open) {
			w.Header().Set("Retry-After", strconv.Itoa(int(open.RetryAfter.Seconds())))
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	path := "fast"
	if result.Decision.UseRichPath {
		path = "rich"
	}
	rt.metrics.Retrieval().RecordBuild(
		rt.opts.Service, path, result.Decision.Reason, len(result.Citations), time.Since(start),
	)

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
