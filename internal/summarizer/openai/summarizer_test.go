package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewatch/tidewatch/internal/models"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OpenAISummarizer) {
	server := httptest.NewServer(handler)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	config.HTTPClient = server.Client()

	s := NewOpenAISummarizer("test-key", "gpt-4", 600, 0.3)
	s.client = openai.NewClientWithConfig(config)

	return server, s
}

func sampleActivity() ([]models.TokenSummary, []models.ClassifiedTransfer) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	summaries := []models.TokenSummary{
		{
			TokenName:     "Vera",
			TokenSymbol:   "VERA",
			TotalMoved:    decimal.RequireFromString("522.35"),
			LastDirection: models.DirectionOutflow,
			TransferCount: 1,
			LastTransfer:  ts,
		},
	}
	transfers := []models.ClassifiedTransfer{
		{
			TokenTransferEvent: models.TokenTransferEvent{
				TokenName:   "Vera",
				TokenSymbol: "VERA",
				TxHash:      "0xabc123",
				Timestamp:   ts,
			},
			Direction:     models.DirectionOutflow,
			DisplayAmount: decimal.RequireFromString("522.35"),
		},
	}
	return summaries, transfers
}

func TestOpenAISummarizer_SummarizeActivity(t *testing.T) {
	const narrative = "The wallet mostly sent tokens out, led by a 522.35 VERA outflow."

	var gotRequest openai.ChatCompletionRequest
	server, s := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		response := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: narrative}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	})
	defer server.Close()

	summaries, transfers := sampleActivity()
	got, err := s.SummarizeActivity(context.Background(), "0x6dd63e4dd6201b20bc754b93b07de351ba053fd2", summaries, transfers)

	require.NoError(t, err)
	assert.Equal(t, narrative, got)

	assert.Equal(t, "gpt-4", gotRequest.Model)
	require.Len(t, gotRequest.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, gotRequest.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, gotRequest.Messages[1].Role)
	assert.Contains(t, gotRequest.Messages[1].Content, "522.35 VERA")
	assert.Equal(t, 600, gotRequest.MaxTokens)
}

func TestOpenAISummarizer_EmptyChoices(t *testing.T) {
	server, s := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(openai.ChatCompletionResponse{}))
	})
	defer server.Close()

	summaries, transfers := sampleActivity()
	_, err := s.SummarizeActivity(context.Background(), "0x6dd63e4dd6201b20bc754b93b07de351ba053fd2", summaries, transfers)
	assert.Error(t, err)
}

func TestOpenAISummarizer_APIError(t *testing.T) {
	server, s := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, err := w.Write([]byte(`{"error":{"message":"rate limit"}}`))
		require.NoError(t, err)
	})
	defer server.Close()

	summaries, transfers := sampleActivity()
	_, err := s.SummarizeActivity(context.Background(), "0x6dd63e4dd6201b20bc754b93b07de351ba053fd2", summaries, transfers)
	assert.Error(t, err)
}

func TestNewOpenAISummarizer_DefaultModel(t *testing.T) {
	s := NewOpenAISummarizer("test-key", "", 600, 0.3)
	assert.Equal(t, openai.GPT4, s.model)
}
