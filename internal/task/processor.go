package task

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tidewatch/tidewatch/internal/analysis"
	"github.com/tidewatch/tidewatch/internal/explorer"
	"github.com/tidewatch/tidewatch/internal/gateway"
	"github.com/tidewatch/tidewatch/internal/models"
)

const (
	askForAddressReply = "I could not find a valid wallet address in your message. Please send a 0x-prefixed 40-character hex address, for example 0x6dd63e4dd6201b20bc754b93b07de351ba053fd2."
	rateLimitedReply   = "The block explorer is throttling requests right now. Please try again later."
	unavailableReply   = "The block explorer could not be reached. Please try again later."
	summaryFailedReply = "I fetched the wallet's transfers but could not generate a summary. Please try again later."
)

// WalletAnalyzer 钱包分析流水线的入口
type WalletAnalyzer interface {
	Analyze(ctx context.Context, input string) (*models.AnalysisResult, error)
}

// Processor drives one task through the lifecycle: claim it, run the wallet
// pipeline, and map the outcome onto a terminal or paused state. Gateway
// callbacks are best-effort; their failures are logged, never propagated.
type Processor struct {
	store    *MemoryStore
	analyzer WalletAnalyzer
	hub      gateway.Collaborator
	logger   *zap.Logger
}

// NewProcessor wires a processor over the given store, pipeline and
// framework collaborator.
func NewProcessor(store *MemoryStore, analyzer WalletAnalyzer, hub gateway.Collaborator, logger *zap.Logger) *Processor {
	return &Processor{
		store:    store,
		analyzer: analyzer,
		hub:      hub,
		logger:   logger,
	}
}

// Submit creates a task from raw user input and processes it to completion
// within the calling request. The returned task carries the final state.
func (p *Processor) Submit(ctx context.Context, input string) (*Task, error) {
	t := New(input)
	if err := p.store.Create(t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return p.run(ctx, t.ID, input)
}

// ResumeWithReply feeds a human reply into a paused task and re-runs the
// pipeline with the new text. Only input_required tasks can resume.
func (p *Processor) ResumeWithReply(ctx context.Context, id, text string) (*Task, error) {
	t, err := p.store.Get(id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusInputRequired {
		return nil, fmt.Errorf("%w: task %s is %s, expected %s", ErrInvalidTransition, id, t.Status, StatusInputRequired)
	}

	if _, err := p.store.AppendMessage(id, "user", text); err != nil {
		return nil, err
	}
	return p.run(ctx, id, text)
}

func (p *Processor) run(ctx context.Context, id, input string) (*Task, error) {
	if _, err := p.store.Claim(id); err != nil {
		return nil, err
	}
	p.pushStatus(ctx, id, StatusWorking, "analyzing wallet activity")

	result, err := p.analyzer.Analyze(ctx, input)

	switch {
	case errors.Is(err, analysis.ErrInvalidAddress):
		return p.pause(ctx, id)

	case errors.Is(err, explorer.ErrRateLimited):
		return p.fail(ctx, id, FailureRateLimited, rateLimitedReply, err)

	case errors.Is(err, explorer.ErrUnavailable), errors.Is(err, explorer.ErrBadResponse):
		return p.fail(ctx, id, FailureUnavailable, unavailableReply, err)

	case err != nil:
		// 其余错误只可能来自叙述生成
		return p.fail(ctx, id, FailureSummaryFailed, summaryFailedReply, err)
	}

	return p.complete(ctx, id, result)
}

// pause parks the task until a human supplies a usable address.
func (p *Processor) pause(ctx context.Context, id string) (*Task, error) {
	if _, err := p.store.MarkInputRequired(id, askForAddressReply); err != nil {
		return nil, err
	}
	if _, err := p.store.AppendMessage(id, "agent", askForAddressReply); err != nil {
		return nil, err
	}

	if err := p.hub.RequestAssistance(ctx, id, askForAddressReply); err != nil {
		p.logger.Warn("failed to request assistance", zap.String("task_id", id), zap.Error(err))
	}
	p.pushStatus(ctx, id, StatusInputRequired, "waiting for a wallet address")

	p.logger.Info("task paused for input", zap.String("task_id", id))
	return p.store.Get(id)
}

func (p *Processor) fail(ctx context.Context, id, code, reply string, cause error) (*Task, error) {
	if _, err := p.store.MarkFailed(id, code, reply); err != nil {
		return nil, err
	}
	if _, err := p.store.AppendMessage(id, "agent", reply); err != nil {
		return nil, err
	}

	if err := p.hub.SendChat(ctx, id, reply); err != nil {
		p.logger.Warn("failed to send chat reply", zap.String("task_id", id), zap.Error(err))
	}
	p.pushStatus(ctx, id, StatusFailed, code)

	p.logger.Warn("task failed",
		zap.String("task_id", id),
		zap.String("code", code),
		zap.Error(cause))
	return p.store.Get(id)
}

func (p *Processor) complete(ctx context.Context, id string, result *models.AnalysisResult) (*Task, error) {
	reply := fmt.Sprintf("%s\n\nExplorer: %s", result.Narrative, result.ExplorerURL)
	artifactName := fmt.Sprintf("wallet-%s-summary.txt", result.WalletAddress)

	if _, err := p.store.MarkCompleted(id, result.WalletAddress, reply, artifactName); err != nil {
		return nil, err
	}
	if _, err := p.store.AppendMessage(id, "agent", reply); err != nil {
		return nil, err
	}

	// 附件上传与回调均为尽力而为
	if err := p.hub.UploadArtifact(ctx, id, artifactName, []byte(reply)); err != nil {
		p.logger.Warn("failed to upload artifact", zap.String("task_id", id), zap.Error(err))
	}
	if err := p.hub.SendChat(ctx, id, reply); err != nil {
		p.logger.Warn("failed to send chat reply", zap.String("task_id", id), zap.Error(err))
	}
	p.pushStatus(ctx, id, StatusCompleted, "analysis complete")

	p.logger.Info("task completed",
		zap.String("task_id", id),
		zap.String("wallet", result.WalletAddress),
		zap.Int("transfers", result.TransferCount))
	return p.store.Get(id)
}

func (p *Processor) pushStatus(ctx context.Context, id string, status Status, note string) {
	if err := p.hub.PushStatus(ctx, id, string(status), note); err != nil {
		p.logger.Warn("failed to push task status",
			zap.String("task_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}
