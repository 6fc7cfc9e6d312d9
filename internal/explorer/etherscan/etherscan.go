package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/tidewatch/tidewatch/internal/explorer"
	"github.com/tidewatch/tidewatch/internal/models"
	"github.com/tidewatch/tidewatch/internal/utils/request"
)

const (
	defaultBaseURL = "https://api.etherscan.io/api"

	// 每次拉取最近 50 条,按时间倒序
	pageSize = "50"
)

// Client is an Etherscan-compatible explorer client. Works against any API
// exposing the module=account envelope protocol.
type Client struct {
	baseURL    string
	keys       explorer.KeySelector
	httpClient *resty.Client
}

// NewClient creates an explorer client. An empty baseURL falls back to the
// Etherscan mainnet endpoint.
func NewClient(baseURL string, keys explorer.KeySelector) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		keys:       keys,
		httpClient: request.Request,
	}
}

// apiEnvelope 统一响应包装: result 可能是数组也可能是错误字符串
type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type transferRecord struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	ContractAddress string `json:"contractAddress"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// TokenTransfers implements the explorer.Client interface
func (c *Client) TokenTransfers(ctx context.Context, address string) ([]models.TokenTransferEvent, error) {
	env, err := c.call(ctx, map[string]string{
		"module":  "account",
		"action":  "tokentx",
		"address": address,
		"page":    "1",
		"offset":  pageSize,
		"sort":    "desc",
	})
	if err != nil {
		return nil, err
	}

	if env.Status != "1" {
		// 没有任何转账记录不算错误
		if strings.Contains(strings.ToLower(env.Message), "no transactions found") {
			return nil, nil
		}
		return nil, classifyFailure(env)
	}

	var records []transferRecord
	if err := json.Unmarshal(env.Result, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to decode transfer list: %v", explorer.ErrBadResponse, err)
	}

	events := make([]models.TokenTransferEvent, 0, len(records))
	for _, record := range records {
		event, err := record.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, nil
}

// TokenBalance implements the explorer.Client interface
func (c *Client) TokenBalance(ctx context.Context, address, contractAddress string) (decimal.Decimal, error) {
	env, err := c.call(ctx, map[string]string{
		"module":          "account",
		"action":          "tokenbalance",
		"contractaddress": contractAddress,
		"address":         address,
		"tag":             "latest",
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	if env.Status != "1" {
		return decimal.Decimal{}, classifyFailure(env)
	}

	var raw string
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: failed to decode balance: %v", explorer.ErrBadResponse, err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: failed to parse balance %q: %v", explorer.ErrBadResponse, raw, err)
	}

	return balance, nil
}

// call issues one GET against the explorer and decodes the envelope. Each
// request draws its API key from the injected selector.
func (c *Client) call(ctx context.Context, params map[string]string) (*apiEnvelope, error) {
	params["apikey"] = c.keys.NextKey()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", explorer.ErrUnavailable, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", explorer.ErrUnavailable, resp.StatusCode())
	}

	var env apiEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode envelope: %v", explorer.ErrBadResponse, err)
	}

	return &env, nil
}

// classifyFailure maps a non-success envelope onto a sentinel error. Rate
// limiting shows up either in the message or in a string result.
func classifyFailure(env *apiEnvelope) error {
	detail := env.Message

	var note string
	if len(env.Result) > 0 && json.Unmarshal(env.Result, &note) == nil && note != "" {
		detail = detail + ": " + note
	}

	if strings.Contains(strings.ToLower(detail), "rate limit") {
		return fmt.Errorf("%w: %s", explorer.ErrRateLimited, detail)
	}

	return fmt.Errorf("%w: %s", explorer.ErrBadResponse, detail)
}

func (r transferRecord) toEvent() (models.TokenTransferEvent, error) {
	seconds, err := strconv.ParseInt(r.TimeStamp, 10, 64)
	if err != nil {
		return models.TokenTransferEvent{}, fmt.Errorf("%w: failed to parse timestamp %q: %v", explorer.ErrBadResponse, r.TimeStamp, err)
	}

	decimals, err := strconv.ParseInt(r.TokenDecimal, 10, 32)
	if err != nil {
		return models.TokenTransferEvent{}, fmt.Errorf("%w: failed to parse token decimals %q: %v", explorer.ErrBadResponse, r.TokenDecimal, err)
	}

	return models.TokenTransferEvent{
		TokenName:       r.TokenName,
		TokenSymbol:     r.TokenSymbol,
		RawAmount:       r.Value,
		TokenDecimals:   int32(decimals),
		From:            r.From,
		To:              r.To,
		ContractAddress: r.ContractAddress,
		TxHash:          r.Hash,
		BlockNumber:     r.BlockNumber,
		Timestamp:       time.Unix(seconds, 0).UTC(),
	}, nil
}
