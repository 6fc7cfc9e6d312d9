package summarizer

import (
	"context"
	"errors"

	"github.com/tidewatch/tidewatch/internal/models"
)

// Summarizer turns classified wallet activity into a natural-language
// narrative via an LLM.
type Summarizer interface {
	// SummarizeActivity produces a short narrative describing the wallet's
	// recent inflows and outflows. transfers are expected newest first.
	SummarizeActivity(ctx context.Context, wallet string, summaries []models.TokenSummary, transfers []models.ClassifiedTransfer) (string, error)
}

// ErrGeneration 叙述生成失败(任何 LLM 调用错误都归入此类)
var ErrGeneration = errors.New("summary generation failed")
