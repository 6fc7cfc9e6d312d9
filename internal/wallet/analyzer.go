package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tidewatch/tidewatch/internal/analysis"
	"github.com/tidewatch/tidewatch/internal/explorer"
	"github.com/tidewatch/tidewatch/internal/models"
	"github.com/tidewatch/tidewatch/internal/summarizer"
)

const explorerAddressURL = "https://etherscan.io/address/"

const (
	noActivityNarrative   = "This wallet has no ERC-20 token transfers on record, so there is no recent activity to summarize."
	noHeldTokensNarrative = "All of this wallet's recent token transfers involve tokens it no longer holds, so there is no current activity worth summarizing."
)

// Analyzer runs the full pipeline for one wallet: resolve the address, fetch
// recent transfers, classify them, optionally drop no-longer-held tokens, and
// produce the narrative.
type Analyzer struct {
	explorer   explorer.Client
	summarizer summarizer.Summarizer
	filter     *BalanceFilter
	window     int
	logger     *zap.Logger
}

// NewAnalyzer wires the pipeline. A nil filter disables balance filtering;
// window bounds how many recent transfers feed the narrative.
func NewAnalyzer(client explorer.Client, summ summarizer.Summarizer, filter *BalanceFilter, window int, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		explorer:   client,
		summarizer: summ,
		filter:     filter,
		window:     window,
		logger:     logger,
	}
}

// Analyze turns free-form input holding a wallet address into an analysis
// result. The pipeline is strictly sequential; any step error aborts the run.
func (a *Analyzer) Analyze(ctx context.Context, input string) (*models.AnalysisResult, error) {
	// 1. 提取并校验钱包地址
	address, err := resolveAddress(input)
	if err != nil {
		return nil, err
	}

	link := explorerAddressURL + address

	// 2. 拉取最近的转账记录
	events, err := a.explorer.TokenTransfers(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token transfers: %w", err)
	}

	// 3. 没有任何活动时直接返回固定文案,不调用 LLM
	if len(events) == 0 {
		a.logger.Info("no token activity found", zap.String("wallet", address))
		return a.newResult(address, noActivityNarrative, link, 0), nil
	}

	// 4. 按时间倒序分类并截断观察窗口
	classified, err := analysis.ClassifyTransfers(events, address, a.window)
	if err != nil {
		return nil, fmt.Errorf("failed to classify transfers: %w", err)
	}

	// 5. 可选: 过滤掉当前余额为零的代币
	if a.filter != nil {
		classified = a.filter.Apply(ctx, address, classified)
		if len(classified) == 0 {
			a.logger.Info("all recent transfers filtered out", zap.String("wallet", address))
			return a.newResult(address, noHeldTokensNarrative, link, 0), nil
		}
	}

	// 6. 按代币聚合
	summaries := analysis.AggregateByToken(classified)

	// 7. 生成自然语言叙述
	narrative, err := a.summarizer.SummarizeActivity(ctx, address, summaries, classified)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", summarizer.ErrGeneration, err)
	}

	a.logger.Info("wallet analysis complete",
		zap.String("wallet", address),
		zap.Int("transfers", len(classified)),
		zap.Int("tokens", len(summaries)))

	return a.newResult(address, narrative, link, len(classified)), nil
}

func (a *Analyzer) newResult(address, narrative, link string, count int) *models.AnalysisResult {
	return &models.AnalysisResult{
		WalletAddress: address,
		Narrative:     narrative,
		ExplorerURL:   link,
		TransferCount: count,
		GeneratedAt:   time.Now().UTC(),
	}
}

// resolveAddress accepts either a bare address or chat text containing one,
// and returns it normalized to lowercase.
func resolveAddress(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if err := analysis.ValidateAddress(trimmed); err == nil {
		return analysis.NormalizeAddress(trimmed), nil
	}
	if address, ok := analysis.ExtractAddress(trimmed); ok {
		return analysis.NormalizeAddress(address), nil
	}
	return "", fmt.Errorf("%w: no address in input", analysis.ErrInvalidAddress)
}
