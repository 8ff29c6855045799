// Package naver is a client for the Naver local search API.
package naver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/placemark/internal/core/domain"
	"github.com/samirrijal/placemark/internal/pkg/metrics"
	"github.com/samirrijal/placemark/internal/pkg/telemetry"
	"github.com/samirrijal/placemark/internal/pkg/textutil"
)

const (
	DefaultBaseURL = "https://openapi.naver.com"
	searchPath     = "/v1/search/local.json"
	maxDisplay     = 5
)

// Config configures a Client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Retries      int
	Timeout      time.Duration
}

// Client implements ports.Geocoder.
type Client struct {
	http         *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	retries      uint64
}

// NewClient creates a new Client. Missing credentials are reported per call,
// not here.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		retries:      uint64(cfg.Retries),
	}
}

type searchResponse struct {
	Total int    `json:"total"`
	Items []item `json:"items"`
}

type item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Telephone   string `json:"telephone"`
	Address     string `json:"address"`
	RoadAddress string `json:"roadAddress"`
	MapX        string `json:"mapx"`
	MapY        string `json:"mapy"`
}

type errorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode"`
}

// StatusError is a non-2xx answer from the search API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("naver search: status %d: %s %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("naver search: status %d", e.StatusCode)
}

// Search queries the local search endpoint. display is capped at 5, the
// maximum the endpoint serves.
func (c *Client) Search(ctx context.Context, query string, display int) ([]domain.Place, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return nil, domain.ErrMissingCredentials
	}
	if display <= 0 || display > maxDisplay {
		display = maxDisplay
	}

	ctx, span := telemetry.Tracer("placemark/naver").Start(ctx, telemetry.SpanSearchUpstream)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrSearchQuery, query))

	var items []item
	op := func() error {
		var err error
		items, err = c.fetch(ctx, query, display)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUpstream, err)
	}

	places := make([]domain.Place, 0, len(items))
	for _, it := range items {
		p, err := it.place()
		if err != nil {
			slog.WarnContext(ctx, "skipping search item", "title", it.Title, "error", err)
			continue
		}
		places = append(places, p)
	}
	span.SetAttributes(attribute.Int(telemetry.AttrSearchResults, len(places)))
	return places, nil
}

func (c *Client) fetch(ctx context.Context, query string, display int) ([]item, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("display", strconv.Itoa(display))
	q.Set("start", "1")
	q.Set("sort", "random")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Naver-Client-Id", c.clientID)
	req.Header.Set("X-Naver-Client-Secret", c.clientSecret)
	req.Header.Set("Accept", "application/json")

	t0 := time.Now()
	metrics.SearchUpstreamRequests.Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SearchUpstreamFailures.WithLabelValues("transport").Inc()
		return nil, err
	}
	defer resp.Body.Close()
	metrics.SearchUpstreamDuration.Observe(time.Since(t0).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SearchUpstreamFailures.WithLabelValues("status").Inc()
		se := &StatusError{StatusCode: resp.StatusCode}
		var body errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
			se.Code, se.Message = body.ErrorCode, body.ErrorMessage
		}
		return nil, se
	}

	var r searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		metrics.SearchUpstreamFailures.WithLabelValues("decode").Inc()
		return nil, fmt.Errorf("decode: %w", err)
	}
	return r.Items, nil
}

func (it item) place() (domain.Place, error) {
	lng, err := parseCoord(it.MapX)
	if err != nil {
		return domain.Place{}, fmt.Errorf("mapx: %w", err)
	}
	lat, err := parseCoord(it.MapY)
	if err != nil {
		return domain.Place{}, fmt.Errorf("mapy: %w", err)
	}
	return domain.Place{
		Title:       textutil.StripTags(it.Title),
		Link:        it.Link,
		Category:    it.Category,
		Description: textutil.StripTags(it.Description),
		Telephone:   it.Telephone,
		Address:     it.Address,
		RoadAddress: it.RoadAddress,
		Location:    domain.GeoPoint{Lat: lat, Lng: lng},
	}, nil
}

// parseCoord accepts the scaled integer form Naver sends ("1269780000") and
// plain decimal degrees ("126.978").
func parseCoord(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty coordinate")
	}
	if strings.Contains(s, ".") {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return domain.ScaledDegrees(n), nil
}
