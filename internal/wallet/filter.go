package wallet

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tidewatch/tidewatch/internal/explorer"
	"github.com/tidewatch/tidewatch/internal/models"
)

// BalanceFilter drops transfers of tokens the wallet no longer holds any
// balance of. Balance lookups go through the injected token bucket so the
// explorer's per-second quota is respected without fixed sleeps.
type BalanceFilter struct {
	explorer explorer.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewBalanceFilter creates a balance filter backed by the given explorer
// client and rate limiter.
func NewBalanceFilter(client explorer.Client, limiter *rate.Limiter, logger *zap.Logger) *BalanceFilter {
	return &BalanceFilter{
		explorer: client,
		limiter:  limiter,
		logger:   logger,
	}
}

// Apply returns the transfers whose token the wallet still holds. Lookups
// are deduplicated per contract address. Filtering is best-effort: a failed
// or interrupted lookup keeps the transfer.
func (f *BalanceFilter) Apply(ctx context.Context, wallet string, transfers []models.ClassifiedTransfer) []models.ClassifiedTransfer {
	held := make(map[string]bool)

	for _, transfer := range transfers {
		contract := transfer.ContractAddress
		if _, ok := held[contract]; ok {
			continue
		}

		if err := f.limiter.Wait(ctx); err != nil {
			f.logger.Warn("balance filter interrupted", zap.Error(err))
			held[contract] = true
			continue
		}

		balance, err := f.explorer.TokenBalance(ctx, wallet, contract)
		if err != nil {
			f.logger.Warn("failed to look up token balance",
				zap.String("contract", contract),
				zap.Error(err))
			held[contract] = true
			continue
		}

		held[contract] = !balance.IsZero()
	}

	kept := make([]models.ClassifiedTransfer, 0, len(transfers))
	for _, transfer := range transfers {
		if held[transfer.ContractAddress] {
			kept = append(kept, transfer)
		}
	}

	return kept
}
