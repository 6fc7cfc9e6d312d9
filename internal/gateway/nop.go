package gateway

import (
	"context"

	"go.uber.org/zap"
)

// NopCollaborator 独立运行模式: 未配置 hub 地址时只记录日志
type NopCollaborator struct {
	logger *zap.Logger
}

// NewNopCollaborator creates a collaborator that logs every callback and
// always succeeds. Used when no hub URL is configured.
func NewNopCollaborator(logger *zap.Logger) *NopCollaborator {
	return &NopCollaborator{logger: logger}
}

// PushStatus implements the Collaborator interface
func (n *NopCollaborator) PushStatus(_ context.Context, taskID, status, note string) error {
	n.logger.Debug("status push skipped, no hub configured",
		zap.String("task_id", taskID),
		zap.String("status", status),
		zap.String("note", note))
	return nil
}

// RequestAssistance implements the Collaborator interface
func (n *NopCollaborator) RequestAssistance(_ context.Context, taskID, question string) error {
	n.logger.Info("assistance request skipped, no hub configured",
		zap.String("task_id", taskID),
		zap.String("question", question))
	return nil
}

// UploadArtifact implements the Collaborator interface
func (n *NopCollaborator) UploadArtifact(_ context.Context, taskID, filename string, content []byte) error {
	n.logger.Debug("artifact upload skipped, no hub configured",
		zap.String("task_id", taskID),
		zap.String("filename", filename),
		zap.Int("bytes", len(content)))
	return nil
}

// SendChat implements the Collaborator interface
func (n *NopCollaborator) SendChat(_ context.Context, taskID, text string) error {
	n.logger.Debug("chat message skipped, no hub configured",
		zap.String("task_id", taskID),
		zap.String("text", text))
	return nil
}
