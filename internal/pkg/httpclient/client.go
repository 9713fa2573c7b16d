// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const defaultTimeout = 10 * time.Second

// StatusError 表示下游返回了非 2xx 状态码。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.URL + " returned " + http.StatusText(e.StatusCode)
}

// Client 带追踪的出站 HTTP 客户端，webhook 投递使用
type Client struct {
	tracer  trace.Tracer
	http    *http.Client
	headers http.Header
}

type Option func(*Client)

// WithTimeout 设置单次请求的兜底超时，调用方的 context 更短时以 context 为准。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHeader 为每个请求附加固定请求头。
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Set(key, value) }
}

func NewClient(tracer trace.Tracer, opts ...Option) *Client {
	c := &Client{
		tracer: tracer,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		headers: http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON 发送 JSON 请求体并注入 traceparent。
func (c *Client) PostJSON(ctx context.Context, target string, body []byte) error {
	u, err := url.Parse(target)
	if err != nil {
		return errors.Wrapf(err, "parse url %q", target)
	}

	ctx, span := c.tracer.Start(ctx, "POST "+u.Hostname(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.url", u.Redacted()),
			attribute.String("http.method", http.MethodPost),
			attribute.Int("http.request_content_length", len(body)),
		))
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fail(errors.Wrap(err, "build request"))
	}
	for k, vs := range c.headers {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(errors.Wrapf(err, "post %s", u.Redacted()))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode/100 != 2 {
		return fail(&StatusError{URL: u.Redacted(), StatusCode: resp.StatusCode})
	}
	return nil
}
