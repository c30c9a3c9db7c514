package escalation

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/coworker/internal/domain"
)

var counters = []domain.MannedCounter{
	{Name: "ITヘルプデスク", Email: "it@example.com", Description: "PC"},
	{Name: "ネットワーク窓口", Email: "net@example.com", Description: "VPN"},
}

var chatHistory = []domain.ChatMessage{
	{Role: domain.RoleUser, Content: "VPNに接続できません"},
	{Role: domain.RoleAssistant, Content: "再起動してください。"},
}

func TestFlowHappyPath(t *testing.T) {
	var f Flow
	assert.Equal(t, StepIdle, f.Step())

	require.NoError(t, f.Start(counters, chatHistory))
	assert.Equal(t, StepList, f.Step())

	require.NoError(t, f.Pick(1))
	snap := f.Snapshot()
	assert.Equal(t, StepForm, snap.Step)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "ネットワーク窓口", snap.Selected.Name)

	require.NoError(t, f.Write("  まだ繋がりません  "))
	assert.Equal(t, StepConfirm, f.Step())

	req, err := f.BeginSend("u@x.com", domain.EmployeeInfo{CompanyCode: "MMC", OfficeCode: "MM00"})
	require.NoError(t, err)
	assert.Equal(t, domain.SendMailRequest{
		QuestionerEmail:    "u@x.com",
		MannedCounterName:  "ネットワーク窓口",
		Company:            "MMC",
		Office:             "MM00",
		MailContent:        "【お問い合わせ内容】\nまだ繋がりません\n\n【チャット履歴】\n[ユーザー]\nVPNに接続できません\n\n[アシスタント]\n再起動してください。",
		MannedCounterEmail: "net@example.com",
	}, req)

	assert.Equal(t, StepSending, f.Step())

	require.NoError(t, f.MarkSent("受け付けました"))
	snap = f.Snapshot()
	assert.Equal(t, StepSent, snap.Step)
	assert.Equal(t, "受け付けました", snap.SentText)
}

func TestFlowBack(t *testing.T) {
	var f Flow
	require.NoError(t, f.Start(counters, nil))
	require.NoError(t, f.Pick(0))
	require.NoError(t, f.Write("help"))

	require.NoError(t, f.Back())
	assert.Equal(t, StepForm, f.Step())
	assert.Equal(t, "help", f.Snapshot().Message)

	require.NoError(t, f.Back())
	assert.Equal(t, StepList, f.Step())
	assert.Empty(t, f.Snapshot().Message)
	assert.Nil(t, f.Snapshot().Selected)

	require.ErrorIs(t, f.Back(), ErrInvalidTransition)
}

func TestFlowInvalidTransitions(t *testing.T) {
	info := domain.EmployeeInfo{CompanyCode: "MMC", OfficeCode: "MM00"}
	tests := []struct {
		name  string
		setup func(f *Flow)
		op    func(f *Flow) error
		want  Step
	}{
		{"pick from idle", func(*Flow) {}, func(f *Flow) error { return f.Pick(0) }, StepIdle},
		{"write from idle", func(*Flow) {}, func(f *Flow) error { return f.Write("x") }, StepIdle},
		{"mark sent from idle", func(*Flow) {}, func(f *Flow) error { return f.MarkSent("x") }, StepIdle},
		{"abort from idle", func(*Flow) {}, (*Flow).AbortSend, StepIdle},
		{"send from idle", func(*Flow) {}, func(f *Flow) error {
			_, err := f.BeginSend("u", info)
			return err
		}, StepIdle},
		{"pick out of range", func(f *Flow) { _ = f.Start(counters, nil) }, func(f *Flow) error { return f.Pick(5) }, StepList},
		{"pick negative", func(f *Flow) { _ = f.Start(counters, nil) }, func(f *Flow) error { return f.Pick(-1) }, StepList},
		{"restart from form", toForm, func(f *Flow) error { return f.Start(counters, nil) }, StepForm},
		{"mark sent from confirm", toConfirm, func(f *Flow) error { return f.MarkSent("x") }, StepConfirm},
		{"second send", toSending, func(f *Flow) error {
			_, err := f.BeginSend("u", info)
			return err
		}, StepSending},
		{"back while sending", toSending, (*Flow).Back, StepSending},
		{"cancel while sending", toSending, (*Flow).Cancel, StepSending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Flow
			tt.setup(&f)
			require.ErrorIs(t, tt.op(&f), ErrInvalidTransition)
			assert.Equal(t, tt.want, f.Step())
		})
	}
}

func TestFlowStartAndWriteErrors(t *testing.T) {
	var f Flow
	require.ErrorIs(t, f.Start(nil, nil), ErrNoCounters)
	assert.Equal(t, StepIdle, f.Step())

	toForm(&f)
	require.ErrorIs(t, f.Write("   "), ErrEmptyMessage)
	assert.Equal(t, StepForm, f.Step())
}

func TestFlowAbortSendAllowsRetry(t *testing.T) {
	var f Flow
	toSending(&f)
	require.NoError(t, f.AbortSend())
	assert.Equal(t, StepConfirm, f.Step())

	req, err := f.BeginSend("u@x.com", domain.EmployeeInfo{CompanyCode: "MMC", OfficeCode: "MM00"})
	require.NoError(t, err)
	assert.Equal(t, "ITヘルプデスク", req.MannedCounterName)
	require.NoError(t, f.MarkSent("ok"))
	assert.Equal(t, StepSent, f.Step())
}

func TestFlowBeginSendOnce(t *testing.T) {
	var f Flow
	toConfirm(&f)

	const callers = 8
	var wg sync.WaitGroup
	var won atomic.Int32
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.BeginSend("u@x.com", domain.EmployeeInfo{}); err == nil {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, StepSending, f.Step())
}

func toForm(f *Flow) {
	_ = f.Start(counters, nil)
	_ = f.Pick(0)
}

func toConfirm(f *Flow) {
	toForm(f)
	_ = f.Write("help")
}

func toSending(f *Flow) {
	toConfirm(f)
	_, _ = f.BeginSend("u@x.com", domain.EmployeeInfo{})
}

func TestFlowCancel(t *testing.T) {
	var f Flow
	require.NoError(t, f.Start(counters, nil))
	require.NoError(t, f.Pick(0))
	require.NoError(t, f.Cancel())
	assert.Equal(t, StepIdle, f.Step())
	assert.Empty(t, f.Snapshot().Counters)

	require.NoError(t, f.Start(counters, nil))
	require.NoError(t, f.Pick(0))
	require.NoError(t, f.Write("x"))
	_, err := f.BeginSend("u@x.com", domain.EmployeeInfo{})
	require.NoError(t, err)
	require.NoError(t, f.MarkSent("ok"))
	require.ErrorIs(t, f.Cancel(), ErrInvalidTransition)

	f.Reset()
	assert.Equal(t, StepIdle, f.Step())
}

func TestMailContentWithoutHistory(t *testing.T) {
	assert.Equal(t, "【お問い合わせ内容】\nhelp\n\n【チャット履歴】\n", MailContent("help", nil))
}

func TestFlowsPerOwner(t *testing.T) {
	fs := NewFlows()
	a := fs.Get("1")
	assert.Same(t, a, fs.Get("1"))
	assert.NotSame(t, a, fs.Get("2"))
}
