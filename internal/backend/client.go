package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chairbook/internal/config"
	"chairbook/internal/domain"
	"chairbook/internal/metrics"
	"chairbook/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrUnexpectedStatus = errors.New("unexpected backend status")

const (
	resourceChairs         = "chairs"
	resourceAvailabilities = "availabilities"
	resourceBookings       = "bookings"

	cachePrefix = "chairbook:"
	maxPages    = 1000
)

// Client reads chairs, availabilities and bookings from the scheduling REST API.
// Every listing endpoint is paginated and wrapped in a {"data": [...], "meta": {...}} envelope.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta *pageMeta       `json:"meta,omitempty"`
}

type pageMeta struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

// NewClient constructs a client from the backend section of the config.
func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UseRedisCache configures optional Redis caching for listing endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Client) ListChairs(ctx context.Context) ([]models.Chair, error) {
	var chairs []models.Chair
	if c.readCache(ctx, cachePrefix+resourceChairs, &chairs) {
		return chairs, nil
	}

	err := c.list(ctx, resourceChairs, "/chairs", nil, func(raw json.RawMessage) error {
		var ch models.Chair
		if err := json.Unmarshal(raw, &ch); err != nil {
			return err
		}
		chairs = append(chairs, ch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cachePrefix+resourceChairs, chairs)
	return chairs, nil
}

func (c *Client) GetChair(ctx context.Context, id int64) (*models.Chair, error) {
	var ch models.Chair
	if err := c.getOne(ctx, resourceChairs, fmt.Sprintf("/chairs/%d", id), &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// ListAvailabilities returns the weekly windows of one chair, or of every chair when chairID is 0.
func (c *Client) ListAvailabilities(ctx context.Context, chairID int64) ([]models.Availability, error) {
	path := "/availabilities"
	if chairID != 0 {
		path = fmt.Sprintf("/chairs/%d/availabilities", chairID)
	}
	cacheKey := fmt.Sprintf("%s%s:%d", cachePrefix, resourceAvailabilities, chairID)

	var out []models.Availability
	if c.readCache(ctx, cacheKey, &out) {
		return out, nil
	}

	err := c.list(ctx, resourceAvailabilities, path, nil, func(raw json.RawMessage) error {
		var a models.Availability
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, out)
	return out, nil
}

func (c *Client) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]models.Booking, error) {
	q := bookingQuery(filter)
	cacheKey := cachePrefix + resourceBookings + ":" + q.Encode()

	var out []models.Booking
	if c.readCache(ctx, cacheKey, &out) {
		return out, nil
	}

	err := c.list(ctx, resourceBookings, "/bookings", q, func(raw json.RawMessage) error {
		var b models.Booking
		if err := json.Unmarshal(raw, &b); err != nil {
			return err
		}
		// the backend may ignore some filters
		if filter.Matches(&b) {
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, out)
	return out, nil
}

func (c *Client) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var b models.Booking
	if err := c.getOne(ctx, resourceBookings, fmt.Sprintf("/bookings/%d", id), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func bookingQuery(f domain.BookingFilter) url.Values {
	q := url.Values{}
	if f.ChairID != 0 {
		q.Set("chair_id", strconv.FormatInt(f.ChairID, 10))
	}
	if f.UserID != 0 {
		q.Set("user_id", strconv.FormatInt(f.UserID, 10))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	return q
}

// list walks every page of a listing endpoint. Records that fail to decode are
// logged and skipped so one bad row never hides the rest of the snapshot.
func (c *Client) list(ctx context.Context, resource, path string, query url.Values, decode func(json.RawMessage) error) error {
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		for k, v := range query {
			q[k] = v
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(c.pageSize))

		var env envelope
		if err := c.doGet(ctx, c.baseURL+path+"?"+q.Encode(), &env); err != nil {
			metrics.IncBackendFetch(resource, "error")
			return fmt.Errorf("list %s: %w", resource, err)
		}

		var records []json.RawMessage
		if len(env.Data) > 0 && string(env.Data) != "null" {
			if err := json.Unmarshal(env.Data, &records); err != nil {
				metrics.IncBackendFetch(resource, "error")
				return fmt.Errorf("list %s: decode page %d: %w", resource, page, err)
			}
		}

		for i, raw := range records {
			if err := decode(raw); err != nil {
				metrics.IncSkippedRecord(resource)
				c.logger.Warn().
					Err(err).
					Str("resource", resource).
					Int("page", page).
					Int("index", i).
					Msg("Skipping malformed record")
			}
		}

		if env.Meta == nil || env.Meta.TotalPages <= page || len(records) == 0 {
			metrics.IncBackendFetch(resource, "ok")
			return nil
		}
	}
	metrics.IncBackendFetch(resource, "error")
	return fmt.Errorf("list %s: more than %d pages", resource, maxPages)
}

func (c *Client) getOne(ctx context.Context, resource, path string, out any) error {
	var env envelope
	if err := c.doGet(ctx, c.baseURL+path, &env); err != nil {
		metrics.IncBackendFetch(resource, "error")
		return fmt.Errorf("get %s: %w", resource, err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		metrics.IncBackendFetch(resource, "error")
		return fmt.Errorf("get %s: decode: %w", resource, err)
	}
	metrics.IncBackendFetch(resource, "ok")
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %w: http %d", domain.ErrUnavailable, ErrUnexpectedStatus, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: http %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
