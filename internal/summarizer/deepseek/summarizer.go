package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidewatch/tidewatch/internal/models"
	"github.com/tidewatch/tidewatch/internal/summarizer"
)

const (
	defaultAPIEndpoint = "https://api.deepseek.com/v1"
	defaultModel       = "deepseek-chat"
)

// DeepSeekSummarizer implements the Summarizer interface using DeepSeek
type DeepSeekSummarizer struct {
	apiKey      string
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewDeepSeekSummarizer creates a new DeepSeek summarizer instance
func NewDeepSeekSummarizer(apiKey, model string, maxTokens int, temperature float64) *DeepSeekSummarizer {
	if model == "" {
		model = defaultModel
	}

	return &DeepSeekSummarizer{
		apiKey:      apiKey,
		endpoint:    defaultAPIEndpoint,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      &http.Client{},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SummarizeActivity implements the Summarizer interface
func (s *DeepSeekSummarizer) SummarizeActivity(ctx context.Context, wallet string, summaries []models.TokenSummary, transfers []models.ClassifiedTransfer) (string, error) {
	digest := summarizer.ActivityDigest(wallet, summaries, transfers)

	prompt := fmt.Sprintf(`以下是一个以太坊钱包近期的 ERC-20 转账数据：

%s

请用英文撰写 2-4 句话的自然语言总结，要求：
1. 描述整体的资金流入(inflow)与流出(outflow)情况
2. 点出金额或频次最显著的代币
3. 直接输出总结文本，不要添加标题、列表或其他格式标记`, digest)

	resp, err := s.createChatCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to summarize wallet activity: %w", err)
	}

	narrative := strings.TrimSpace(resp)
	if narrative == "" {
		return "", fmt.Errorf("empty narrative from api")
	}

	return narrative, nil
}

// createChatCompletion sends a request to the DeepSeek API
func (s *DeepSeekSummarizer) createChatCompletion(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "你是一个专业的区块链钱包活动分析助手，擅长把 ERC-20 转账记录总结成简明准确的自然语言描述。",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/chat/completions", s.endpoint),
		bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	if !json.Valid(body) {
		return "", fmt.Errorf("API 返回无效的 JSON 响应")
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("api error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from api")
	}

	return chatResp.Choices[0].Message.Content, nil
}
