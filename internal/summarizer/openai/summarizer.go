package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/tidewatch/tidewatch/internal/models"
	"github.com/tidewatch/tidewatch/internal/summarizer"
)

// OpenAISummarizer implements the Summarizer interface using OpenAI
type OpenAISummarizer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAISummarizer creates a new OpenAI summarizer instance
func NewOpenAISummarizer(apiKey, model string, maxTokens int, temperature float32) *OpenAISummarizer {
	client := openai.NewClient(apiKey)
	if model == "" {
		model = openai.GPT4 // 默认使用GPT-4
	}
	return &OpenAISummarizer{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// SummarizeActivity implements the Summarizer interface
func (s *OpenAISummarizer) SummarizeActivity(ctx context.Context, wallet string, summaries []models.TokenSummary, transfers []models.ClassifiedTransfer) (string, error) {
	digest := summarizer.ActivityDigest(wallet, summaries, transfers)

	prompt := fmt.Sprintf(`以下是一个以太坊钱包近期的 ERC-20 转账数据:
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
		return "", fmt.Errorf("empty narrative from openai")
	}

	return narrative, nil
}

// createChatCompletion is a helper function to make OpenAI API calls
func (s *OpenAISummarizer) createChatCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "你是一个专业的区块链钱包活动分析助手，擅长把 ERC-20 转账记录总结成简明准确的自然语言描述。",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   s.maxTokens,
			Temperature: s.temperature, // 使用较低的temperature以获得更稳定的输出
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return resp.Choices[0].Message.Content, nil
}
