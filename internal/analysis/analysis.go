package analysis

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tidewatch/tidewatch/internal/models"
)

// ErrInvalidAddress 地址不符合 0x + 40 位十六进制的格式要求
var ErrInvalidAddress = errors.New("invalid wallet address format")

var (
	addressPattern       = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	inlineAddressPattern = regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)
)

// ValidateAddress checks that the input is exactly a 0x-prefixed 40 hex
// character wallet address. Anything else is rejected, never corrected.
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return nil
}

// ExtractAddress returns the first wallet address found in free-form chat
// text. ok is false when the text contains no well-formed address.
func ExtractAddress(text string) (string, bool) {
	match := inlineAddressPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return match, true
}

// NormalizeAddress lowercases an address so comparisons and explorer calls
// are case-insensitive.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// Classify tags a single transfer relative to the queried wallet: the wallet
// being the sender means outflow, everything else is inflow.
func Classify(event models.TokenTransferEvent, wallet string) models.TransferDirection {
	if strings.EqualFold(event.From, wallet) {
		return models.DirectionOutflow
	}
	return models.DirectionInflow
}

// DisplayAmount converts a raw smallest-unit integer amount into its
// human-readable form, raw / 10^decimals, using exact decimal arithmetic.
func DisplayAmount(raw string, decimals int32) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse raw amount %q: %w", raw, err)
	}
	return amount.Shift(-decimals), nil
}

// ClassifyTransfers orders events newest first, truncates to the most recent
// window entries, and tags each one with its direction and display amount.
// A window of zero or less keeps every event.
func ClassifyTransfers(events []models.TokenTransferEvent, wallet string, window int) ([]models.ClassifiedTransfer, error) {
	// 先按时间倒序排序,再截断观察窗口
	sorted := make([]models.TokenTransferEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if window > 0 && len(sorted) > window {
		sorted = sorted[:window]
	}

	classified := make([]models.ClassifiedTransfer, 0, len(sorted))
	for _, event := range sorted {
		display, err := DisplayAmount(event.RawAmount, event.TokenDecimals)
		if err != nil {
			return nil, err
		}
		classified = append(classified, models.ClassifiedTransfer{
			TokenTransferEvent: event,
			Direction:          Classify(event, wallet),
			DisplayAmount:      display,
		})
	}

	return classified, nil
}

// AggregateByToken folds classified transfers into per-token summaries.
// Input is expected newest first, so the first transfer seen for a token
// carries its last direction and last transfer time. Output is ordered by
// token name for deterministic results.
func AggregateByToken(transfers []models.ClassifiedTransfer) []models.TokenSummary {
	byName := make(map[string]*models.TokenSummary)
	for _, transfer := range transfers {
		summary, ok := byName[transfer.TokenName]
		if !ok {
			summary = &models.TokenSummary{
				TokenName:     transfer.TokenName,
				TokenSymbol:   transfer.TokenSymbol,
				TotalMoved:    decimal.Zero,
				LastDirection: transfer.Direction,
				LastTransfer:  transfer.Timestamp,
			}
			byName[transfer.TokenName] = summary
		}
		summary.TotalMoved = summary.TotalMoved.Add(transfer.DisplayAmount)
		summary.TransferCount++
	}

	summaries := make([]models.TokenSummary, 0, len(byName))
	for _, summary := range byName {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TokenName < summaries[j].TokenName
	})

	return summaries
}
