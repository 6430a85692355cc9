// Package postgrest implements repository.Backend against the hosted
// backend's REST interface (/rest/v1/<table>).
package postgrest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmops/internal/repository"
)

type tokenKey struct{}

// WithAccessToken makes calls issued with ctx run as the signed-in user, so
// the service applies that user's row-level policies.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Backend is a resty-backed repository.Backend.
type Backend struct {
	httpClient *resty.Client
	apiKey     string
	logger     *zap.Logger
}

var _ repository.Backend = (*Backend)(nil)

// New builds a REST backend for the project at baseURL. apiKey is sent as the
// project key and as the fallback bearer token when no user token is in context.
func New(baseURL, apiKey string, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")+"/rest/v1").
		SetHeader("apikey", apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &Backend{httpClient: client, apiKey: apiKey, logger: logger}
}

// apiError mirrors the REST interface's error payload.
type apiError struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
	Code    string `json:"code"`
}

func (b *Backend) request(ctx context.Context) *resty.Request {
	token := accessToken(ctx)
	if token == "" {
		token = b.apiKey
	}
	return b.httpClient.R().SetContext(ctx).SetAuthToken(token)
}

func toError(resp *resty.Response, apiErr *apiError) error {
	message := apiErr.Message
	if message == "" {
		message = strings.TrimSpace(resp.String())
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode())
	}
	return &repository.BackendError{Status: resp.StatusCode(), Message: message}
}

// FormatValue renders a filter value the way the REST interface expects it.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

// Params converts a Query into REST query parameters.
func Params(q repository.Query) url.Values {
	params := url.Values{}
	params.Set("select", "*")
	for _, f := range q.Filters {
		params.Add(f.Column, string(f.Op)+"."+FormatValue(f.Value))
	}
	if q.Order != "" {
		dir := "asc"
		if q.Desc {
			dir = "desc"
		}
		params.Set("order", q.Order+"."+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}

// Select implements repository.Backend.
func (b *Backend) Select(ctx context.Context, table string, q repository.Query, dest any) error {
	apiErr := new(apiError)
	resp, err := b.request(ctx).
		SetQueryParamsFromValues(Params(q)).
		SetResult(dest).
		SetError(apiErr).
		Get("/" + table)
	if err != nil {
		return fmt.Errorf("rest select: %w", err)
	}
	if resp.IsError() {
		return toError(resp, apiErr)
	}
	b.logger.Debug("rows selected", zap.String("table", table), zap.Int("filters", len(q.Filters)))
	return nil
}

// Insert implements repository.Backend.
func (b *Backend) Insert(ctx context.Context, table string, row any) error {
	apiErr := new(apiError)
	resp, err := b.request(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(row).
		SetError(apiErr).
		Post("/" + table)
	if err != nil {
		return fmt.Errorf("rest insert: %w", err)
	}
	if resp.IsError() {
		return toError(resp, apiErr)
	}
	return nil
}

// Update implements repository.Backend.
func (b *Backend) Update(ctx context.Context, table, id string, patch map[string]any) error {
	var affected []map[string]any
	apiErr := new(apiError)
	resp, err := b.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id).
		SetBody(patch).
		SetResult(&affected).
		SetError(apiErr).
		Patch("/" + table)
	if err != nil {
		return fmt.Errorf("rest update: %w", err)
	}
	if resp.IsError() {
		return toError(resp, apiErr)
	}
	if len(affected) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete implements repository.Backend.
func (b *Backend) Delete(ctx context.Context, table, id string) error {
	var affected []map[string]any
	apiErr := new(apiError)
	resp, err := b.request(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+id).
		SetResult(&affected).
		SetError(apiErr).
		Delete("/" + table)
	if err != nil {
		return fmt.Errorf("rest delete: %w", err)
	}
	if resp.IsError() {
		return toError(resp, apiErr)
	}
	if len(affected) == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Close implements repository.Backend.
func (b *Backend) Close(context.Context) error { return nil }
