package pandascore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-export/internal/domain/match"
	"github.com/riskibarqy/match-export/internal/platform/logging"
	"github.com/riskibarqy/match-export/internal/platform/resilience"
	"github.com/riskibarqy/match-export/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL      = "https://api.pandascore.co"
	defaultVideogame    = "csgo"
	defaultStatusFilter = "finished"
	defaultPerPage      = 100
	maxPerPage          = 100
	maxResponseBytes    = 16 << 20
	maxRetryAfter       = time.Minute
)

var bearerRegex = regexp.MustCompile(`(?i)bearer\s+[^\s"']+`)

// pageDecoder keeps numbers as json.Number so ids and scores reach the CSV verbatim.
var pageDecoder = sonic.Config{UseNumber: true}.Froze()

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Videogame      string
	StatusFilter   string
	PerPage        int
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient   *http.Client
	baseURL      string
	token        string
	videogame    string
	statusFilter string
	perPage      int
	maxRetries   int
	retryBackoff time.Duration
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	videogame := strings.Trim(strings.TrimSpace(cfg.Videogame), "/")
	if videogame == "" {
		videogame = defaultVideogame
	}
	statusFilter := strings.TrimSpace(cfg.StatusFilter)
	if statusFilter == "" {
		statusFilter = defaultStatusFilter
	}
	perPage := cfg.PerPage
	if perPage <= 0 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = time.Second
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		token:        strings.TrimSpace(cfg.Token),
		videogame:    videogame,
		statusFilter: statusFilter,
		perPage:      perPage,
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: retryBackoff,
		logger:       logger,
		breaker:      resilience.NewCircuitBreaker(cfg.CircuitBreaker),
	}
}

// FetchPastMatchesPage requests one page of past matches. The body must be a
// JSON array of objects.
func (c *Client) FetchPastMatchesPage(ctx context.Context, page int) (match.Page, error) {
	if page < 1 {
		return match.Page{}, fmt.Errorf("%w: page must be >= 1, got %d", usecase.ErrInvalidInput, page)
	}

	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "pandascore circuit breaker rejected request", "page", page, "state", c.breaker.State())
		return match.Page{}, fmt.Errorf("%w: pandascore is temporarily unavailable: %v", usecase.ErrDependencyUnavailable, err)
	}

	path := "/" + c.videogame + "/matches/past"
	query := c.pageQuery(page)
	request := path + "?" + query.Encode()

	raw, header, err := c.executeRequest(ctx, c.baseURL+request)
	c.breaker.Record(isTransient(err))
	if err != nil {
		return match.Page{}, err
	}

	records, err := decodeRecords(raw)
	if err != nil {
		return match.Page{}, fmt.Errorf("decode page %d: %w", page, err)
	}

	c.logger.DebugContext(ctx, "pandascore page decoded",
		"page", page,
		"records", len(records),
		"x_page", headerInt(header, "X-Page", -1),
		"x_per_page", headerInt(header, "X-Per-Page", -1),
		"x_total", headerInt(header, "X-Total", -1),
	)

	return match.Page{
		Number:  page,
		Records: records,
		Raw:     raw,
		Request: request,
		Total:   headerInt(header, "X-Total", -1),
	}, nil
}

func (c *Client) pageQuery(page int) url.Values {
	values := url.Values{}
	values.Set("per_page", strconv.Itoa(c.perPage))
	values.Set("filter[status]", c.statusFilter)
	values.Set("page", strconv.Itoa(page))
	return values
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, http.Header, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("authorization", "Bearer "+c.token)

		wait := time.Duration(attempt+1) * c.retryBackoff
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %w: send request: %s", usecase.ErrUpstreamRequest, errPandaScoreTransient, c.sanitize(err.Error()))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: %w: read response body: %v", usecase.ErrUpstreamRequest, errPandaScoreTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, resp.Header, nil
			default:
				apiErr := &APIError{Status: resp.StatusCode, Body: c.sanitize(abbreviateBody(raw))}
				if !isRetryableStatus(resp.StatusCode) {
					return nil, nil, fmt.Errorf("%w: %w", usecase.ErrUpstreamRequest, apiErr)
				}
				lastErr = fmt.Errorf("%w: %w: %w", usecase.ErrUpstreamRequest, errPandaScoreTransient, apiErr)
				if retryAfter, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
					wait = retryAfter
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		c.logger.WarnContext(ctx, "pandascore request failed, retrying",
			"url", fullURL,
			"attempt", attempt+1,
			"backoff", wait,
			"error", lastErr,
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: pandascore request failed", usecase.ErrUpstreamRequest)
	}
	c.logger.WarnContext(ctx, "pandascore request failed", "url", fullURL, "error", lastErr)
	return nil, nil, lastErr
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if c.token != "" {
		value = strings.ReplaceAll(value, c.token, "REDACTED")
	}
	return bearerRegex.ReplaceAllString(value, "Bearer REDACTED")
}

func decodeRecords(raw []byte) ([]match.Record, error) {
	var items []any
	if err := pageDecoder.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: body is not a JSON array: %v", usecase.ErrMalformedResponse, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%w: body is null", usecase.ErrMalformedResponse)
	}

	records := make([]match.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, want object", usecase.ErrMalformedResponse, i, item)
		}
		records = append(records, match.Record(obj))
	}
	return records, nil
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errPandaScoreTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func parseRetryAfter(raw string) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return min(time.Duration(seconds)*time.Second, maxRetryAfter), true
	}
	if at, err := http.ParseTime(raw); err == nil {
		return min(max(time.Until(at), 0), maxRetryAfter), true
	}
	return 0, false
}

func headerInt(header http.Header, key string, fallback int) int {
	value := strings.TrimSpace(header.Get(key))
	if value == "" {
		return fallback
	}
	out, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return out
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
