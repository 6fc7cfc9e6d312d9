package gateway

import "context"

// Collaborator 是外部 agent 框架的回调通道,所有调用均为尽力而为
type Collaborator interface {
	// PushStatus reports a task status transition to the agent framework.
	PushStatus(ctx context.Context, taskID, status, note string) error

	// RequestAssistance asks a human operator for help with a task, for
	// example when the input holds no usable wallet address.
	RequestAssistance(ctx context.Context, taskID, question string) error

	// UploadArtifact attaches a generated document to the task.
	UploadArtifact(ctx context.Context, taskID, filename string, content []byte) error

	// SendChat delivers a chat message to the task's conversation.
	SendChat(ctx context.Context, taskID, text string) error
}
