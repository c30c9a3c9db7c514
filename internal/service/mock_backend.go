package service

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/set-night/coworker/internal/domain"
)

//go:embed mocks/*.json
var mockFS embed.FS

// MockBackend answers every call from embedded fixtures. It stands in for
// the backend in local development.
type MockBackend struct{}

func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func loadFixture(name string, out any) error {
	data, err := mockFS.ReadFile("mocks/" + name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	data, err = unwrapEnvelope(data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return nil
}

func (m *MockBackend) Answer(_ context.Context, req domain.RagRequest) (domain.Turn, error) {
	var turn domain.Turn
	if err := loadFixture("ragFaqAndRag.json", &turn); err != nil {
		return domain.Turn{}, err
	}
	turn.SessionID = req.SessionID
	if turn.SessionID == "" {
		turn.SessionID = "mock-" + uuid.NewString()
	}
	answer := ""
	if turn.RAG != nil {
		answer = turn.RAG.Answer
	}
	turn.ChatHistory = []domain.ChatMessage{
		{Role: domain.RoleUser, Content: req.Query},
		{Role: domain.RoleAssistant, Content: answer},
	}
	return turn, nil
}

func (m *MockBackend) AnswerRaw(ctx context.Context, req domain.RagRequest) (json.RawMessage, error) {
	turn, err := m.Answer(ctx, req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(turn)
}

func (m *MockBackend) GetEmployee(context.Context, string) (*domain.EmployeeResponse, error) {
	var resp domain.EmployeeResponse
	if err := loadFixture("employee.json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (m *MockBackend) GetMannedCounters(context.Context, domain.GetMannedCounterRequest) (*domain.GetMannedCounterResponse, error) {
	var resp domain.GetMannedCounterResponse
	if err := loadFixture("getMannedCounter.json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (m *MockBackend) SendMail(context.Context, domain.SendMailRequest) (*domain.SendMailResponse, error) {
	var resp domain.SendMailResponse
	if err := loadFixture("sendMail.json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (m *MockBackend) SubmitFeedback(context.Context, domain.SubmitFeedbackRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := loadFixture("submitFeedback.json", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (m *MockBackend) DeleteFeedback(context.Context, domain.DeleteFeedbackRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := loadFixture("deleteFeedback.json", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (m *MockBackend) HighlightChunks(context.Context, domain.ChunkHighlighterRequest) (*domain.ChunkHighlighterResponse, error) {
	var resp domain.ChunkHighlighterResponse
	if err := loadFixture("chunkHighlighter.json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MockUser is the signed-in user reported in mock mode.
func MockUser() (*domain.User, error) {
	var u domain.User
	if err := loadFixture("user.json", &u); err != nil {
		return nil, err
	}
	return &u, nil
}
