package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/set-night/coworker/internal/domain"
)

const (
	timeoutMessage   = "Request timeout"
	gatewayIDHeader  = "x-apigw-api-id"
	maxResponseBytes = 10 << 20
)

// API is the RAG/FAQ backend as seen by the chat surfaces.
type API interface {
	Answer(ctx context.Context, req domain.RagRequest) (domain.Turn, error)
	// AnswerRaw returns the automated answer body as the backend sent it,
	// with any response envelope removed.
	AnswerRaw(ctx context.Context, req domain.RagRequest) (json.RawMessage, error)
	GetEmployee(ctx context.Context, miamID string) (*domain.EmployeeResponse, error)
	GetMannedCounters(ctx context.Context, req domain.GetMannedCounterRequest) (*domain.GetMannedCounterResponse, error)
	SendMail(ctx context.Context, req domain.SendMailRequest) (*domain.SendMailResponse, error)
	SubmitFeedback(ctx context.Context, req domain.SubmitFeedbackRequest) (json.RawMessage, error)
	DeleteFeedback(ctx context.Context, req domain.DeleteFeedbackRequest) (json.RawMessage, error)
	HighlightChunks(ctx context.Context, req domain.ChunkHighlighterRequest) (*domain.ChunkHighlighterResponse, error)
}

// APIError is a failure reported by the backend, or a timeout. Message is
// meant for the user.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

type Backend struct {
	baseURL    string
	gatewayID  string
	httpClient *http.Client
}

func NewBackend(baseURL, gatewayID string, timeout time.Duration) *Backend {
	return &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		gatewayID:  gatewayID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *Backend) Answer(ctx context.Context, req domain.RagRequest) (domain.Turn, error) {
	raw, err := b.AnswerRaw(ctx, req)
	if err != nil {
		return domain.Turn{}, err
	}
	var turn domain.Turn
	if len(raw) == 0 {
		return turn, nil
	}
	if err := json.Unmarshal(raw, &turn); err != nil {
		return domain.Turn{}, fmt.Errorf("decode automated_answer response: %w", err)
	}
	if turn.FAQ != nil && !turn.FAQ.Aligned() {
		slog.Warn("faq result lists differ in length, extra entries are dropped",
			"session_id", turn.SessionID, "answers", len(turn.FAQ.Answer), "kept", turn.FAQ.Len())
	}
	return turn, nil
}

func (b *Backend) AnswerRaw(ctx context.Context, req domain.RagRequest) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := b.do(ctx, http.MethodPost, "/v1/automated_answer", nil, req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (b *Backend) GetEmployee(ctx context.Context, miamID string) (*domain.EmployeeResponse, error) {
	var resp domain.EmployeeResponse
	q := url.Values{"MIAMID": {miamID}}
	if err := b.do(ctx, http.MethodGet, "/v1/get_employee", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) GetMannedCounters(ctx context.Context, req domain.GetMannedCounterRequest) (*domain.GetMannedCounterResponse, error) {
	if req.PriorityMannedCounterNames == nil {
		req.PriorityMannedCounterNames = []string{}
	}
	var resp domain.GetMannedCounterResponse
	if err := b.do(ctx, http.MethodPost, "/v1/get_manned_counter", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) SendMail(ctx context.Context, req domain.SendMailRequest) (*domain.SendMailResponse, error) {
	var resp domain.SendMailResponse
	if err := b.do(ctx, http.MethodPost, "/v1/send-mail", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) SubmitFeedback(ctx context.Context, req domain.SubmitFeedbackRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := b.do(ctx, http.MethodPost, "/v1/submit_feedback", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *Backend) DeleteFeedback(ctx context.Context, req domain.DeleteFeedbackRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := b.do(ctx, http.MethodDelete, "/v1/delete_feedback", nil, req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *Backend) HighlightChunks(ctx context.Context, req domain.ChunkHighlighterRequest) (*domain.ChunkHighlighterResponse, error) {
	var resp domain.ChunkHighlighterResponse
	if err := b.do(ctx, http.MethodPost, "/v1/chunk_highlighter", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *Backend) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	start := time.Now()
	err := b.roundTrip(ctx, method, path, query, in, out)
	backendLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	backendRequests.WithLabelValues(path, outcome(err)).Inc()
	return err
}

func (b *Backend) roundTrip(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := b.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.gatewayID != "" {
		req.Header.Set(gatewayIDHeader, b.gatewayID)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &APIError{Message: timeoutMessage}
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return &APIError{Message: timeoutMessage}
		}
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromBody(resp.StatusCode, data)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	data, err = unwrapEnvelope(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func errorFromBody(status int, data []byte) *APIError {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return &APIError{StatusCode: status, Message: e.Error}
	}
	return &APIError{StatusCode: status, Message: fmt.Sprintf("HTTP Error: %d", status)}
}

type envelope struct {
	StatusCode *int            `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

// unwrapEnvelope strips the {"statusCode": n, "body": ...} wrapper the
// backend's gateway adds. body may be an object or a JSON-encoded string.
// Anything else is returned unchanged.
func unwrapEnvelope(data []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.StatusCode == nil || len(env.Body) == 0 {
		return data, nil
	}

	body := bytes.TrimSpace(env.Body)
	if len(body) > 0 && body[0] == '"' {
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("decode envelope body: %w", err)
		}
		body = []byte(s)
	}

	if status := *env.StatusCode; status < 200 || status > 299 {
		return nil, errorFromBody(status, body)
	}
	return body, nil
}
