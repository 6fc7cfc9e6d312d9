package explorer

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tidewatch/tidewatch/internal/models"
)

// Client 负责从区块浏览器 API 读取链上数据
type Client interface {
	// TokenTransfers retrieves recent ERC-20 transfer events for the address,
	// newest first. An empty result with a nil error means the address has no
	// recorded token activity.
	TokenTransfers(ctx context.Context, address string) ([]models.TokenTransferEvent, error)

	// TokenBalance retrieves the current raw balance the address holds for
	// the given token contract.
	TokenBalance(ctx context.Context, address, contractAddress string) (decimal.Decimal, error)
}

var (
	// ErrRateLimited 上游限流
	ErrRateLimited = errors.New("explorer rate limited")
	// ErrUnavailable 上游不可达(网络错误、超时或非 200 响应)
	ErrUnavailable = errors.New("explorer unavailable")
	// ErrBadResponse 上游返回了无法解析或非预期的内容
	ErrBadResponse = errors.New("unexpected explorer response")
)
