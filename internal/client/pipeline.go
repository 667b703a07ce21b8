package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxRawBody bounds how much of a non-JSON error body is kept for logging.
const maxRawBody = 512

// FilePart is one file attached to a multipart request.
type FilePart struct {
	Field    string
	Filename string
	Content  []byte
}

// Multipart switches a request body to multipart form encoding. The CSRF
// token travels in a header, so the encoding choice is unconstrained.
type Multipart struct {
	Fields map[string]string
	Files  []FilePart
}

// Pipeline builds authenticated, CSRF-protected platform requests and
// normalises every response into an Outcome. It performs no retries and no
// request coalescing; callers that need "no double submit" disable their
// own trigger while a call is in flight.
type Pipeline struct {
	httpClient *http.Client
	sec        SecurityContext
	csrf       CSRFOptions
	logger     *zap.Logger
	metrics    *Metrics

	mu        sync.Mutex
	csrfToken string
}

// New constructs a pipeline. metrics and logger may be nil.
func New(sec SecurityContext, csrf CSRFOptions, timeout time.Duration, metrics *Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	jar, _ := cookiejar.New(nil)
	return &Pipeline{
		httpClient: &http.Client{Timeout: timeout, Jar: jar},
		sec:        sec,
		csrf:       csrf.withDefaults(),
		csrfToken:  sec.CSRFToken,
		logger:     logger,
		metrics:    metrics,
	}
}

// Get issues a read-only call. Reads skip the CSRF machinery.
func (p *Pipeline) Get(ctx context.Context, path string) *Outcome {
	return p.Execute(ctx, http.MethodGet, path, nil)
}

// Execute performs one platform call and classifies the response. body may
// be nil, a JSON-marshalable value, or *Multipart.
func (p *Pipeline) Execute(ctx context.Context, method, path string, body interface{}) *Outcome {
	start := time.Now()
	outcome := p.execute(ctx, method, path, body)
	p.metrics.observe(method, path, outcome.Kind, time.Since(start))
	return outcome
}

func (p *Pipeline) execute(ctx context.Context, method, path string, body interface{}) *Outcome {
	mutating := method != http.MethodGet && method != http.MethodHead

	if mutating {
		if err := p.ensureCSRFToken(ctx); err != nil {
			return failure(FailureNetwork, 0, "csrf bootstrap failed: "+err.Error())
		}
	}

	req, err := p.buildRequest(ctx, method, path, body, mutating)
	if err != nil {
		return failure(FailureNetwork, 0, err.Error())
	}

	correlationID := uuid.NewString()
	req.Header.Set("X-Correlation-ID", correlationID)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("platform call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		return failure(FailureNetwork, 0, err.Error())
	}
	defer resp.Body.Close()

	outcome := classify(resp)
	if !outcome.Success {
		p.logger.Warn("platform call rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("correlation_id", correlationID),
			zap.String("kind", string(outcome.Kind)),
			zap.Int("status", outcome.HTTPStatus))
	}
	return outcome
}

func (p *Pipeline) buildRequest(ctx context.Context, method, path string, body interface{}, mutating bool) (*http.Request, error) {
	var reader io.Reader
	contentType := ""

	switch b := body.(type) {
	case nil:
	case *Multipart:
		buf := &bytes.Buffer{}
		writer := multipart.NewWriter(buf)
		for field, value := range b.Fields {
			if err := writer.WriteField(field, value); err != nil {
				return nil, err
			}
		}
		for _, file := range b.Files {
			part, err := writer.CreateFormFile(file.Field, file.Filename)
			if err != nil {
				return nil, err
			}
			if _, err := part.Write(file.Content); err != nil {
				return nil, err
			}
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		reader = buf
		contentType = writer.FormDataContentType()
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, p.sec.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if p.sec.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.sec.SessionToken)
	}
	if mutating {
		if token := p.token(); token != "" {
			req.Header.Set(p.csrf.Header, token)
		}
	}
	return req, nil
}

func (p *Pipeline) token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.csrfToken
}

// ensureCSRFToken performs the one-shot token bootstrap when no token is
// known yet. It is attempted at most once per missing-token detection, not
// retried in a loop; the call proceeds even if no token was obtained and
// lets the server decide.
func (p *Pipeline) ensureCSRFToken(ctx context.Context) error {
	p.mu.Lock()
	if p.csrfToken != "" {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.metrics.observeBootstrap()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.sec.BaseURL+p.csrf.BootstrapPath, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if p.sec.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.sec.SessionToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == p.csrf.Cookie {
			if value, err := url.QueryUnescape(cookie.Value); err == nil {
				p.mu.Lock()
				p.csrfToken = value
				p.mu.Unlock()
			}
			break
		}
	}

	p.logger.Debug("csrf token bootstrapped", zap.Bool("obtained", p.token() != ""))
	return nil
}

type envelope struct {
	Success *bool                      `json:"success"`
	Message string                     `json:"message"`
	Data    json.RawMessage            `json:"data"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

// classify maps a platform response onto the outcome taxonomy.
func classify(resp *http.Response) *Outcome {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(FailureNetwork, resp.StatusCode, err.Error())
	}

	var env envelope
	parsed := json.Unmarshal(raw, &env) == nil

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if !parsed {
			return failure(FailureTransport, resp.StatusCode, truncate(string(raw)))
		}
		// A missing success flag on 2xx counts as success; an explicit
		// false one is a logical rejection despite the transport status.
		if env.Success != nil && !*env.Success {
			out := failure(FailureRejected, resp.StatusCode, env.Message)
			out.Payload = env.Data
			return out
		}
		payload := env.Data
		if len(payload) == 0 {
			payload = raw
		}
		return success(resp.StatusCode, payload, env.Message)

	case resp.StatusCode == http.StatusUnprocessableEntity:
		out := failure(FailureValidation, resp.StatusCode, messageOr(env, parsed, raw))
		out.FieldErrors = firstMessages(env.Errors)
		return out

	case resp.StatusCode == http.StatusUnauthorized:
		return failure(FailureUnauthenticated, resp.StatusCode, messageOr(env, parsed, raw))

	case resp.StatusCode == http.StatusNotFound:
		return failure(FailureNotFound, resp.StatusCode, messageOr(env, parsed, raw))

	default:
		return failure(FailureTransport, resp.StatusCode, messageOr(env, parsed, raw))
	}
}

func messageOr(env envelope, parsed bool, raw []byte) string {
	if parsed && env.Message != "" {
		return env.Message
	}
	return truncate(string(raw))
}

// firstMessages keeps the first message per field whether the server sent
// arrays or plain strings.
func firstMessages(fields map[string]json.RawMessage) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	result := make(map[string]string, len(fields))
	for field, raw := range fields {
		var list []string
		if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
			result[field] = list[0]
			continue
		}
		var single string
		if json.Unmarshal(raw, &single) == nil {
			result[field] = single
		}
	}
	return result
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxRawBody {
		return s[:maxRawBody]
	}
	return s
}
