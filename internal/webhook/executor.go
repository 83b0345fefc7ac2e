package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "media-webhooks/1.0"

	// MaxResponseChars caps the stored response body.
	MaxResponseChars = 1000
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// AttemptRequest is everything one POST needs.
type AttemptRequest struct {
	URL       string
	Payload   []byte
	Signature string
	Event     EventType
	Timestamp string
}

// AttemptOutcome classifies one HTTP attempt. StatusCode is nil when no
// response was received (DNS, connect, TLS, timeout).
type AttemptOutcome struct {
	StatusCode *int
	Body       string
	Duration   time.Duration
	Success    bool
	Err        error
}

// Executor performs exactly one HTTP POST per call. It neither retries nor persists.
type Executor struct {
	client    *http.Client
	userAgent string
	tracer    trace.Tracer
}

func NewExecutor(timeout time.Duration, userAgent string) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Executor{
		// Client.Timeout also covers reading the response body. Redirects are
		// not followed: the 3xx itself is the outcome, and the signature
		// headers never reach another host.
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: userAgent,
		tracer:    otel.Tracer("media-webhooks-api/internal/webhook"),
	}
}

func (e *Executor) Execute(ctx context.Context, ar AttemptRequest) AttemptOutcome {
	ctx, span := e.tracer.Start(ctx, "webhook.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("webhook.event", ar.Event.String()),
			attribute.String("url.full", RedactURL(ar.URL)),
		),
	)
	defer span.End()

	start := time.Now()
	out := e.do(ctx, ar)
	out.Duration = time.Since(start)

	if out.StatusCode != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", *out.StatusCode))
	}
	if !out.Success {
		msg := "non-2xx response"
		if out.Err != nil {
			span.RecordError(out.Err)
			msg = out.Err.Error()
		}
		span.SetStatus(codes.Error, msg)
	}
	return out
}

func (e *Executor) do(ctx context.Context, ar AttemptRequest) AttemptOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ar.URL, bytes.NewReader(ar.Payload))
	if err != nil {
		return AttemptOutcome{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set(HeaderSignature, ar.Signature)
	req.Header.Set(HeaderEvent, ar.Event.String())
	req.Header.Set(HeaderTimestamp, ar.Timestamp)

	resp, err := e.client.Do(req)
	if err != nil {
		return AttemptOutcome{Err: err}
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	status := resp.StatusCode
	out := AttemptOutcome{
		StatusCode: &status,
		Success:    status >= 200 && status <= 299,
	}

	// UTF-8 runes are at most 4 bytes, so this is enough for MaxResponseChars characters.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseChars*utf8.UTFMax))
	out.Body = Truncate(string(raw), MaxResponseChars)
	if err != nil {
		out.Err = fmt.Errorf("read response: %w", err)
	}
	return out
}

// RedactURL drops credentials, query and fragment from a registration URL
// before it is logged or attached to a span.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
