package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status 表示任务在生命周期中的状态
type Status string

const (
	StatusSubmitted     Status = "submitted"
	StatusWorking       Status = "working"
	StatusInputRequired Status = "input_required"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// 任务失败原因编码,面向 agent 框架
const (
	FailureRateLimited   = "rate_limited"
	FailureUnavailable   = "upstream_unavailable"
	FailureSummaryFailed = "summary_failed"
)

var (
	// ErrNotFound 指定的任务不存在
	ErrNotFound = errors.New("task not found")
	// ErrConflict 任务 ID 冲突
	ErrConflict = errors.New("task already exists")
	// ErrInvalidTransition 当前状态不允许该状态迁移
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Message is one entry in a task's conversation.
type Message struct {
	Role   string `json:"role"` // user / agent
	Text   string `json:"text"`
	SentAt int64  `json:"sent_at"`
}

// Task tracks one wallet-analysis request through its lifecycle, including
// the conversation that produced it. Tasks live only in memory.
type Task struct {
	ID           string    `json:"id"`
	Input        string    `json:"input"`
	Wallet       string    `json:"wallet,omitempty"`
	Status       Status    `json:"status"`
	Reply        string    `json:"reply,omitempty"`
	FailureCode  string    `json:"failure_code,omitempty"`
	Messages     []Message `json:"messages"`
	ArtifactName string    `json:"artifact_name,omitempty"`
	CreatedAt    int64     `json:"created_at"`
	UpdatedAt    int64     `json:"updated_at"`
}

// New creates a submitted task from raw user input.
func New(input string) *Task {
	now := time.Now().Unix()
	return &Task{
		ID:     uuid.NewString(),
		Input:  input,
		Status: StatusSubmitted,
		Messages: []Message{
			{Role: "user", Text: input, SentAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share memory with the store.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Messages = append([]Message(nil), t.Messages...)
	return &clone
}

var allowedTransitions = map[Status][]Status{
	StatusSubmitted:     {StatusWorking},
	StatusWorking:       {StatusInputRequired, StatusCompleted, StatusFailed},
	StatusInputRequired: {StatusWorking},
}

func canTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
