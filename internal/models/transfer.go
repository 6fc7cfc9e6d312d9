package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferDirection 转账方向(相对被查询地址)
type TransferDirection string

const (
	DirectionInflow  TransferDirection = "inflow"  // 资金流入
	DirectionOutflow TransferDirection = "outflow" // 资金流出
)

// TokenTransferEvent ERC-20 转账事件
type TokenTransferEvent struct {
	TokenName       string    `json:"token_name"`
	TokenSymbol     string    `json:"token_symbol"`
	RawAmount       string    `json:"raw_amount"`     // 最小单位整数金额
	TokenDecimals   int32     `json:"token_decimals"` // 代币精度
	From            string    `json:"from"`
	To              string    `json:"to"`
	ContractAddress string    `json:"contract_address"`
	TxHash          string    `json:"tx_hash"`
	BlockNumber     string    `json:"block_number"`
	Timestamp       time.Time `json:"timestamp"`
}

// ClassifiedTransfer 已分类的转账记录
type ClassifiedTransfer struct {
	TokenTransferEvent
	Direction     TransferDirection `json:"direction"`
	DisplayAmount decimal.Decimal   `json:"display_amount"` // raw / 10^decimals
}

// TokenSummary 单个代币在观察窗口内的累计情况
type TokenSummary struct {
	TokenName     string            `json:"token_name"`
	TokenSymbol   string            `json:"token_symbol"`
	TotalMoved    decimal.Decimal   `json:"total_moved"` // 双向累计金额
	LastDirection TransferDirection `json:"last_direction"`
	TransferCount int               `json:"transfer_count"`
	LastTransfer  time.Time         `json:"last_transfer"`
}

// AnalysisResult 一次钱包分析的最终产出
type AnalysisResult struct {
	WalletAddress string    `json:"wallet_address"`
	Narrative     string    `json:"narrative"`
	ExplorerURL   string    `json:"explorer_url"`
	TransferCount int       `json:"transfer_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}
