package escalation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/set-night/coworker/internal/domain"
)

// Step is the position of a support escalation.
type Step int

const (
	StepIdle Step = iota
	StepList
	StepForm
	StepConfirm
	StepSending
	StepSent
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepList:
		return "list"
	case StepForm:
		return "form"
	case StepConfirm:
		return "confirm"
	case StepSending:
		return "sending"
	case StepSent:
		return "sent"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	ErrInvalidTransition = errors.New("invalid escalation transition")
	ErrNoCounters        = errors.New("no manned counters available")
	ErrEmptyMessage      = errors.New("inquiry message is empty")
)

const (
	mailInquiryHeader = "【お問い合わせ内容】"
	mailHistoryHeader = "【チャット履歴】"
	roleUserLabel     = "[ユーザー]"
	roleAssistLabel   = "[アシスタント]"
)

// Flow walks one user through list → form → confirm → sending → sent. It is safe for
// concurrent use.
type Flow struct {
	mu       sync.Mutex
	step     Step
	counters []domain.MannedCounter
	history  []domain.ChatMessage
	selected int
	message  string
	sentText string
}

// Snapshot is a read-only view of a Flow.
type Snapshot struct {
	Step     Step
	Counters []domain.MannedCounter
	Selected *domain.MannedCounter
	Message  string
	SentText string
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Snapshot{
		Step:     f.step,
		Counters: append([]domain.MannedCounter(nil), f.counters...),
		Message:  f.message,
		SentText: f.sentText,
	}
	if f.step >= StepForm {
		c := f.counters[f.selected]
		s.Selected = &c
	}
	return s
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Start opens the counter list. history is the conversation as the backend
// last reported it and ends up in the mail body.
func (f *Flow) Start(counters []domain.MannedCounter, history []domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepIdle && f.step != StepList {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, f.step)
	}
	if len(counters) == 0 {
		return ErrNoCounters
	}
	f.clear()
	f.step = StepList
	f.counters = append([]domain.MannedCounter(nil), counters...)
	f.history = append([]domain.ChatMessage(nil), history...)
	return nil
}

func (f *Flow) Pick(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepList {
		return fmt.Errorf("%w: pick from %s", ErrInvalidTransition, f.step)
	}
	if i < 0 || i >= len(f.counters) {
		return fmt.Errorf("%w: counter %d out of range", ErrInvalidTransition, i)
	}
	f.selected = i
	f.step = StepForm
	return nil
}

// Write records the inquiry text and moves to confirmation.
func (f *Flow) Write(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepForm {
		return fmt.Errorf("%w: write from %s", ErrInvalidTransition, f.step)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	f.message = message
	f.step = StepConfirm
	return nil
}

// Back returns from the form to the list, or from confirmation to the form.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepForm:
		f.step = StepList
		f.message = ""
	case StepConfirm:
		f.step = StepForm
	default:
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, f.step)
	}
	return nil
}

// MarkSent completes a send started with BeginSend, keeping the backend's
// confirmation text.
func (f *Flow) MarkSent(sentText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepSending {
		return fmt.Errorf("%w: mark sent from %s", ErrInvalidTransition, f.step)
	}
	f.sentText = sentText
	f.step = StepSent
	return nil
}

// AbortSend returns a failed send to confirmation so it can be retried.
func (f *Flow) AbortSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepSending {
		return fmt.Errorf("%w: abort from %s", ErrInvalidTransition, f.step)
	}
	f.step = StepConfirm
	return nil
}

// Cancel abandons a flow that has not started sending.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == StepSending || f.step == StepSent {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, f.step)
	}
	f.clear()
	return nil
}

// Reset clears the flow whatever its step.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.clear()
	f.mu.Unlock()
}

func (f *Flow) clear() {
	f.step = StepIdle
	f.counters = nil
	f.history = nil
	f.selected = 0
	f.message = ""
	f.sentText = ""
}

// BeginSend moves a confirmed inquiry to sending and returns its send-mail
// request. Only one caller can win the transition; the rest get
// ErrInvalidTransition.
func (f *Flow) BeginSend(questionerEmail string, info domain.EmployeeInfo) (domain.SendMailRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepConfirm {
		return domain.SendMailRequest{}, fmt.Errorf("%w: send from %s", ErrInvalidTransition, f.step)
	}
	f.step = StepSending
	c := f.counters[f.selected]
	return domain.SendMailRequest{
		QuestionerEmail:    questionerEmail,
		MannedCounterName:  c.Name,
		Company:            info.CompanyCode,
		Office:             info.OfficeCode,
		MailContent:        MailContent(f.message, f.history),
		MannedCounterEmail: c.Email,
		IsOfficeAccessOnly: c.IsOfficeAccessOnly,
	}, nil
}

// MailContent formats the inquiry followed by the chat transcript.
func MailContent(message string, history []domain.ChatMessage) string {
	blocks := make([]string, 0, len(history))
	for _, m := range history {
		label := roleAssistLabel
		if m.Role == domain.RoleUser {
			label = roleUserLabel
		}
		blocks = append(blocks, label+"\n"+m.Content)
	}
	return mailInquiryHeader + "\n" + message + "\n\n" + mailHistoryHeader + "\n" + strings.Join(blocks, "\n\n")
}

// Flows keeps one Flow per owner.
type Flows struct {
	mu    sync.Mutex
	flows map[string]*Flow
}

func NewFlows() *Flows {
	return &Flows{flows: make(map[string]*Flow)}
}

func (fs *Flows) Get(owner string) *Flow {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.flows[owner]
	if !ok {
		f = &Flow{}
		fs.flows[owner] = f
	}
	return f
}
