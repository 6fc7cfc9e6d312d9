package summarizer

import (
	"fmt"
	"strings"

	"github.com/tidewatch/tidewatch/internal/models"
)

// ActivityDigest serializes classified activity into the plain-text block
// both providers embed in their prompts. Deterministic for fixed input.
func ActivityDigest(wallet string, summaries []models.TokenSummary, transfers []models.ClassifiedTransfer) string {
	var digest strings.Builder

	digest.WriteString(fmt.Sprintf("Wallet: %s\n", wallet))
	digest.WriteString(fmt.Sprintf("Transfers inspected: %d\n\n", len(transfers)))

	digest.WriteString("Per-token totals:\n")
	for _, summary := range summaries {
		digest.WriteString(fmt.Sprintf("- %s (%s): total moved %s across %d transfer(s), last direction %s, last seen %s\n",
			summary.TokenName,
			summary.TokenSymbol,
			summary.TotalMoved.String(),
			summary.TransferCount,
			summary.LastDirection,
			summary.LastTransfer.Format("2006-01-02 15:04:05"),
		))
	}

	digest.WriteString("\nRecent transfers (newest first):\n")
	for _, transfer := range transfers {
		digest.WriteString(fmt.Sprintf("- %s | %s | %s %s | tx %s\n",
			transfer.Timestamp.Format("2006-01-02 15:04:05"),
			transfer.Direction,
			transfer.DisplayAmount.String(),
			transfer.TokenSymbol,
			transfer.TxHash,
		))
	}

	return digest.String()
}
