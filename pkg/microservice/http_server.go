// Package microservice serves the assistant team over HTTP.
package microservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
	"github.com/tagus/weather-supervisor/pkg/orchestration"
)

const (
	endpointChat   = "chat"
	endpointStream = "stream"
)

// Invoker runs one supervisor turn
type Invoker interface {
	Invoke(ctx context.Context, threadID, input string, options ...interfaces.GenerateOption) (*orchestration.Result, error)
	Name() string
}

// HTTPServer provides JSON and SSE endpoints for the supervisor
type HTTPServer struct {
	invoker  Invoker
	addr     string
	logger   logging.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	server   *http.Server
}

// ChatRequest is the body of both chat endpoints
type ChatRequest struct {
	Input    string `json:"input"`
	ThreadID string `json:"thread_id,omitempty"`
	OrgID    string `json:"org_id,omitempty"`
}

// MessageData is a conversation message as sent to clients
type MessageData struct {
	Sender     string                 `json:"sender,omitempty"`
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	Name       string                 `json:"name,omitempty"`
	ToolCalls  []interfaces.ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ChatResponse is the body returned by POST /api/v1/chat and the final SSE event
type ChatResponse struct {
	ThreadID string        `json:"thread_id"`
	Content  string        `json:"content"`
	Sender   string        `json:"sender"`
	Steps    int           `json:"steps"`
	Messages []MessageData `json:"messages,omitempty"`
}

// Option configures an HTTPServer
type Option func(*HTTPServer)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(h *HTTPServer) {
		h.logger = logger
	}
}

// WithRegistry sets the Prometheus registry metrics are registered on and served from
func WithRegistry(registry *prometheus.Registry) Option {
	return func(h *HTTPServer) {
		h.registry = registry
	}
}

// NewHTTPServer creates a new HTTP server for the supervisor
func NewHTTPServer(invoker Invoker, addr string, options ...Option) *HTTPServer {
	h := &HTTPServer{
		invoker: invoker,
		addr:    addr,
		logger:  logging.NewNop(),
	}
	for _, option := range options {
		option(h)
	}
	if h.registry == nil {
		h.registry = prometheus.NewRegistry()
	}
	h.metrics = NewMetrics(h.registry)
	return h
}

// Handler returns the routes of the server
func (h *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/v1/chat", h.handleChat)
	mux.HandleFunc("/api/v1/chat/stream", h.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start listens on the configured address until Stop is called
func (h *HTTPServer) Start() error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	h.logger.Info(context.Background(), "HTTP server starting", map[string]interface{}{
		"addr": h.addr,
	})
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	if h.server != nil {
		return h.server.Shutdown(ctx)
	}
	return nil
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"supervisor": h.invoker.Name(),
		"time":       time.Now().Unix(),
	})
}

func (h *HTTPServer) decode(w http.ResponseWriter, r *http.Request, endpoint string) (*ChatRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.ChatRequests.WithLabelValues(endpoint, "bad_request").Inc()
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return nil, false
	}
	if req.Input == "" {
		h.metrics.ChatRequests.WithLabelValues(endpoint, "bad_request").Inc()
		http.Error(w, "Input is required", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// context carries the org and counts tool results of the turn
func (h *HTTPServer) context(ctx context.Context, req *ChatRequest, observer orchestration.Observer) context.Context {
	if req.OrgID != "" {
		ctx = multitenancy.WithOrgID(ctx, req.OrgID)
	}
	return orchestration.WithTurnObserver(ctx, func(ctx context.Context, event orchestration.Event) {
		if event.Message.Role == interfaces.MessageRoleTool {
			tool, _ := event.Message.Metadata["tool_name"].(string)
			h.metrics.ToolCalls.WithLabelValues(tool).Inc()
		}
		if observer != nil {
			observer(ctx, event)
		}
	})
}

func (h *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r, endpointChat)
	if !ok {
		return
	}

	ctx := h.context(r.Context(), req, nil)
	start := time.Now()
	result, err := h.invoker.Invoke(ctx, req.ThreadID, req.Input)
	h.metrics.ChatDuration.WithLabelValues(endpointChat).Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.ChatRequests.WithLabelValues(endpointChat, "error").Inc()
		h.logger.Error(ctx, "Chat turn failed", map[string]interface{}{
			"thread_id": req.ThreadID,
			"error":     err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	h.metrics.ChatRequests.WithLabelValues(endpointChat, "ok").Inc()

	h.logger.Info(ctx, "Chat turn completed", map[string]interface{}{
		"thread_id": result.ThreadID,
		"sender":    result.Sender,
		"steps":     result.Steps,
		"messages":  len(result.Messages),
	})

	resp := toResponse(result)
	for _, msg := range result.Messages {
		resp.Messages = append(resp.Messages, toMessageData("", msg))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPServer) handleStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r, endpointStream)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := h.context(r.Context(), req, func(ctx context.Context, event orchestration.Event) {
		sendSSEEvent(w, flusher, "message", toMessageData(event.Sender, event.Message))
	})

	start := time.Now()
	result, err := h.invoker.Invoke(ctx, req.ThreadID, req.Input)
	h.metrics.ChatDuration.WithLabelValues(endpointStream).Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.ChatRequests.WithLabelValues(endpointStream, "error").Inc()
		h.logger.Error(ctx, "Streaming chat turn failed", map[string]interface{}{
			"thread_id": req.ThreadID,
			"error":     err.Error(),
		})
		sendSSEEvent(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}
	h.metrics.ChatRequests.WithLabelValues(endpointStream, "ok").Inc()
	sendSSEEvent(w, flusher, "done", toResponse(result))
}

func toResponse(result *orchestration.Result) ChatResponse {
	return ChatResponse{
		ThreadID: result.ThreadID,
		Content:  result.Final.Content,
		Sender:   result.Sender,
		Steps:    result.Steps,
	}
}

func toMessageData(sender string, msg interfaces.Message) MessageData {
	return MessageData{
		Sender:     sender,
		Role:       string(msg.Role),
		Content:    msg.Content,
		Name:       msg.Name,
		ToolCalls:  msg.ToolCalls,
		ToolCallID: msg.ToolCallID,
		Metadata:   msg.Metadata,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		_, _ = fmt.Fprintf(w, "event: error\ndata: {\"error\": \"Failed to marshal event data\"}\n\n")
		flusher.Flush()
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", eventType)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
