package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"rentdapp/internal/config"
	"rentdapp/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const maxErrorBody = 64 << 10

// TokenSource yields the bearer token of the current session, or "".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client issues JSON requests against the marketplace REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger
	validate   *validator.Validate
	tokens     TokenSource

	redis     *redis.Client
	cacheTTL  time.Duration
	keyPrefix string
}

func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		validate:   newValidator(),
	}
}

// UseRedisCache enables caching of cacheable GET responses.
func (c *Client) UseRedisCache(rdb *redis.Client, ttl time.Duration, prefix string) {
	c.redis = rdb
	c.cacheTTL = ttl
	c.keyPrefix = prefix
}

// UseTokenSource attaches a bearer token to every request when one exists.
func (c *Client) UseTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Validate runs struct tag validation on a request body.
func (c *Client) Validate(v any) error {
	if err := c.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (c *Client) get(ctx context.Context, service, path string, query url.Values, out any) error {
	return c.request(ctx, service, http.MethodGet, path, query, nil, out)
}

// getCached serves GETs from Redis when caching is enabled.
func (c *Client) getCached(ctx context.Context, service, path string, query url.Values, out any) error {
	key := c.cacheKey(path, query)
	if c.readCache(ctx, key, out) {
		return nil
	}
	if err := c.get(ctx, service, path, query, out); err != nil {
		return err
	}
	c.writeCache(ctx, key, out)
	return nil
}

func (c *Client) send(ctx context.Context, service, method, path string, body, out any) error {
	if body != nil && isStruct(body) {
		if err := c.Validate(body); err != nil {
			return err
		}
	}
	return c.request(ctx, service, method, path, nil, body, out)
}

func (c *Client) request(ctx context.Context, service, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.addAuth(ctx, req); err != nil {
		return err
	}

	start := time.Now()
	err = c.do(req, path, out)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Dur("elapsed", elapsed).Msg("backend call failed")
	}
	metrics.ObserveBackend(service, outcome, elapsed)
	return err
}

func (c *Client) do(req *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Message: messageFromBody(body), Path: path}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) addAuth(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("session token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) cacheKey(path string, query url.Values) string {
	key := c.keyPrefix + "cache:" + path
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		metrics.IncCache(false)
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		metrics.IncCache(false)
		return false
	}
	metrics.IncCache(true)
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
		c.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (c *Client) evict(ctx context.Context, paths ...string) {
	if c.redis == nil {
		return
	}
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		keys = append(keys, c.cacheKey(p, nil))
	}
	_ = c.redis.Del(ctx, keys...).Err()
}

// evictPrefix drops every cached response whose path starts with prefix,
// query-keyed pages and filters included.
func (c *Client) evictPrefix(ctx context.Context, prefix string) {
	if c.redis == nil {
		return
	}
	pattern := globEscaper.Replace(c.cacheKey(prefix, nil)) + "*"
	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Debug().Err(err).Str("pattern", pattern).Msg("cache scan failed")
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug().Err(err).Str("pattern", pattern).Msg("cache evict failed")
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func idPath(format string, ids ...any) string {
	escaped := make([]any, len(ids))
	for i, id := range ids {
		escaped[i] = url.PathEscape(fmt.Sprint(id))
	}
	return fmt.Sprintf(format, escaped...)
}
