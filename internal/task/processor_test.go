package task

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tidewatch/tidewatch/internal/analysis"
	"github.com/tidewatch/tidewatch/internal/explorer"
	"github.com/tidewatch/tidewatch/internal/models"
	"github.com/tidewatch/tidewatch/internal/summarizer"
)

const testWallet = "0x6dd63e4dd6201b20bc754b93b07de351ba053fd2"

type fakeAnalyzer struct {
	result *models.AnalysisResult
	err    error
	calls  []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, input string) (*models.AnalysisResult, error) {
	f.calls = append(f.calls, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type hubCall struct {
	method string
	detail string
}

type fakeHub struct {
	calls []hubCall
	fail  bool
}

func (f *fakeHub) record(method, detail string) error {
	f.calls = append(f.calls, hubCall{method: method, detail: detail})
	if f.fail {
		return fmt.Errorf("hub unreachable")
	}
	return nil
}

func (f *fakeHub) PushStatus(_ context.Context, _, status, _ string) error {
	return f.record("PushStatus", status)
}

func (f *fakeHub) RequestAssistance(_ context.Context, _, question string) error {
	return f.record("RequestAssistance", question)
}

func (f *fakeHub) UploadArtifact(_ context.Context, _, filename string, _ []byte) error {
	return f.record("UploadArtifact", filename)
}

func (f *fakeHub) SendChat(_ context.Context, _, text string) error {
	return f.record("SendChat", text)
}

func (f *fakeHub) methods() []string {
	methods := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		methods = append(methods, call.method)
	}
	return methods
}

func successResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		WalletAddress: testWallet,
		Narrative:     "Mostly outflows of VERA.",
		ExplorerURL:   "https://etherscan.io/address/" + testWallet,
		TransferCount: 2,
		GeneratedAt:   time.Now().UTC(),
	}
}

func newTestProcessor(analyzer *fakeAnalyzer, hub *fakeHub) (*Processor, *MemoryStore) {
	store := NewMemoryStore()
	return NewProcessor(store, analyzer, hub, zap.NewNop()), store
}

func TestProcessor_Submit_Success(t *testing.T) {
	analyzer := &fakeAnalyzer{result: successResult()}
	hub := &fakeHub{}
	processor, _ := newTestProcessor(analyzer, hub)

	got, err := processor.Submit(context.Background(), testWallet)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, testWallet, got.Wallet)
	assert.Contains(t, got.Reply, "Mostly outflows of VERA.")
	assert.Contains(t, got.Reply, "https://etherscan.io/address/"+testWallet)
	assert.Equal(t, fmt.Sprintf("wallet-%s-summary.txt", testWallet), got.ArtifactName)
	assert.Empty(t, got.FailureCode)

	// 回复要写进会话记录
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "agent", got.Messages[1].Role)

	assert.Equal(t, []string{"PushStatus", "UploadArtifact", "SendChat", "PushStatus"}, hub.methods())
	assert.Equal(t, string(StatusWorking), hub.calls[0].detail)
	assert.Equal(t, string(StatusCompleted), hub.calls[3].detail)
}

func TestProcessor_Submit_InvalidAddressPausesTask(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: no address in input", analysis.ErrInvalidAddress)}
	hub := &fakeHub{}
	processor, _ := newTestProcessor(analyzer, hub)

	got, err := processor.Submit(context.Background(), "what is my wallet doing?")
	require.NoError(t, err)

	assert.Equal(t, StatusInputRequired, got.Status)
	assert.Contains(t, got.Reply, "wallet address")
	assert.Contains(t, hub.methods(), "RequestAssistance")
}

func TestProcessor_Submit_FailureMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantReply string
	}{
		{
			name:      "rate limited",
			err:       fmt.Errorf("%w: max rate reached", explorer.ErrRateLimited),
			wantCode:  FailureRateLimited,
			wantReply: "try again later",
		},
		{
			name:      "unreachable",
			err:       fmt.Errorf("%w: connection refused", explorer.ErrUnavailable),
			wantCode:  FailureUnavailable,
			wantReply: "could not be reached",
		},
		{
			name:      "bad envelope",
			err:       fmt.Errorf("%w: not json", explorer.ErrBadResponse),
			wantCode:  FailureUnavailable,
			wantReply: "could not be reached",
		},
		{
			name:      "summary generation",
			err:       fmt.Errorf("%w: model timeout", summarizer.ErrGeneration),
			wantCode:  FailureSummaryFailed,
			wantReply: "could not generate a summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{err: tt.err}
			hub := &fakeHub{}
			processor, _ := newTestProcessor(analyzer, hub)

			got, err := processor.Submit(context.Background(), testWallet)
			require.NoError(t, err)

			assert.Equal(t, StatusFailed, got.Status)
			assert.Equal(t, tt.wantCode, got.FailureCode)
			assert.Contains(t, got.Reply, tt.wantReply)
			assert.Contains(t, hub.methods(), "SendChat")
		})
	}
}

func TestProcessor_HubFailuresAreBestEffort(t *testing.T) {
	analyzer := &fakeAnalyzer{result: successResult()}
	hub := &fakeHub{fail: true}
	processor, _ := newTestProcessor(analyzer, hub)

	got, err := processor.Submit(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestProcessor_ResumeWithReply(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("%w: no address in input", analysis.ErrInvalidAddress)}
	hub := &fakeHub{}
	processor, _ := newTestProcessor(analyzer, hub)

	paused, err := processor.Submit(context.Background(), "summarize my wallet please")
	require.NoError(t, err)
	require.Equal(t, StatusInputRequired, paused.Status)

	// 人工补充地址后重新进入流水线
	analyzer.err = nil
	analyzer.result = successResult()

	resumed, err := processor.ResumeWithReply(context.Background(), paused.ID, testWallet)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, resumed.Status)
	assert.Equal(t, []string{"summarize my wallet please", testWallet}, analyzer.calls)

	// 会话里应包含人工补充的那条消息
	var sawReply bool
	for _, msg := range resumed.Messages {
		if msg.Role == "user" && msg.Text == testWallet {
			sawReply = true
		}
	}
	assert.True(t, sawReply)
}

func TestProcessor_ResumeWithReply_WrongState(t *testing.T) {
	analyzer := &fakeAnalyzer{result: successResult()}
	hub := &fakeHub{}
	processor, _ := newTestProcessor(analyzer, hub)

	done, err := processor.Submit(context.Background(), testWallet)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)

	_, err = processor.ResumeWithReply(context.Background(), done.ID, testWallet)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProcessor_ResumeWithReply_UnknownTask(t *testing.T) {
	processor, _ := newTestProcessor(&fakeAnalyzer{}, &fakeHub{})

	_, err := processor.ResumeWithReply(context.Background(), "missing", testWallet)
	assert.ErrorIs(t, err, ErrNotFound)
}
