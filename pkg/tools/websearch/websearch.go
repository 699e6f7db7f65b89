package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
	"github.com/tagus/weather-supervisor/pkg/logging"
	"github.com/tagus/weather-supervisor/pkg/multitenancy"
)

const (
	// ToolName is the tool name the research prompt refers to
	ToolName = "tavily_search_results_json"

	// DefaultBaseURL is the Tavily API endpoint
	DefaultBaseURL = "https://api.tavily.com"

	defaultMaxResults = 2
	defaultCacheSize  = 256
	defaultCacheTTL   = time.Hour
)

// Tool implements a Tavily backed web search tool
type Tool struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	logger     logging.Logger
	cache      *expirable.LRU[string, string]
	cacheTTL   time.Duration
}

// Option represents an option for configuring the tool
type Option func(*Tool)

// WithHTTPClient sets the HTTP client for the tool
func WithHTTPClient(client *http.Client) Option {
	return func(t *Tool) {
		t.httpClient = client
	}
}

// WithBaseURL points the tool at another Tavily compatible endpoint
func WithBaseURL(baseURL string) Option {
	return func(t *Tool) {
		t.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithMaxResults sets how many results a search returns
func WithMaxResults(n int) Option {
	return func(t *Tool) {
		t.maxResults = n
	}
}

// WithCacheTTL sets how long results are cached; zero disables the cache
func WithCacheTTL(ttl time.Duration) Option {
	return func(t *Tool) {
		t.cacheTTL = ttl
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(t *Tool) {
		t.logger = logger
	}
}

// New creates a new web search tool
func New(apiKey string, options ...Option) *Tool {
	tool := &Tool{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		maxResults: defaultMaxResults,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewNop(),
		cacheTTL:   defaultCacheTTL,
	}

	for _, option := range options {
		option(tool)
	}

	if tool.maxResults <= 0 {
		tool.maxResults = defaultMaxResults
	}
	if tool.cacheTTL > 0 {
		tool.cache = expirable.NewLRU[string, string](defaultCacheSize, nil, tool.cacheTTL)
	}

	return tool
}

// Name returns the name of the tool
func (t *Tool) Name() string {
	return ToolName
}

// DisplayName returns a human-friendly name
func (t *Tool) DisplayName() string {
	return "Web Search"
}

// Description returns a description of what the tool does
func (t *Tool) Description() string {
	return "A search engine optimized for comprehensive, accurate, and trusted results. " +
		"Useful for when you need to answer questions about current events. " +
		"Input should be a search query."
}

// Internal reports whether the tool is hidden from end users
func (t *Tool) Internal() bool {
	return false
}

// Parameters returns the parameters that the tool accepts
func (t *Tool) Parameters() map[string]interfaces.ParameterSpec {
	return map[string]interfaces.ParameterSpec{
		"query": {
			Type:        "string",
			Description: "search query to look up",
			Required:    true,
		},
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Run searches for input, which is a plain query or {"query": ...}
func (t *Tool) Run(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &params); err == nil {
		query = strings.TrimSpace(params.Query)
	}
	if query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	cacheKey := multitenancy.OrgIDOrDefault(ctx) + ":" + query
	if t.cache != nil {
		if result, ok := t.cache.Get(cacheKey); ok {
			t.logger.Debug(ctx, "Search cache hit", map[string]interface{}{"query": query})
			return result, nil
		}
	}

	result, err := t.search(ctx, query)
	if err != nil {
		return "", err
	}

	if t.cache != nil {
		t.cache.Add(cacheKey, result)
	}
	return result, nil
}

// Execute executes the tool with JSON encoded arguments
func (t *Tool) Execute(ctx context.Context, args string) (string, error) {
	return t.Run(ctx, args)
}

func (t *Tool) search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(searchRequest{Query: query, MaxResults: t.maxResults})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	t.logger.Debug(ctx, "Searching the web", map[string]interface{}{
		"query":       query,
		"max_results": t.maxResults,
	})

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("search API returned status code %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(result.Results) == 0 {
		return fmt.Sprintf("No results found for '%s'", query), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Search results for '%s':\n\n", query))
	for i, item := range result.Results {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Title))
		sb.WriteString(fmt.Sprintf("   URL: %s\n", item.URL))
		sb.WriteString(fmt.Sprintf("   %s\n\n", item.Content))
	}
	return sb.String(), nil
}
