package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewatch/tidewatch/internal/models"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *DeepSeekSummarizer) {
	server := httptest.NewServer(handler)

	s := NewDeepSeekSummarizer("test-key", "", 600, 0.3)
	s.endpoint = server.URL
	s.client = server.Client()

	return server, s
}

func sampleActivity() ([]models.TokenSummary, []models.ClassifiedTransfer) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	summaries := []models.TokenSummary{
		{
			TokenName:     "Tether USD",
			TokenSymbol:   "USDT",
			TotalMoved:    decimal.RequireFromString("1.5"),
			LastDirection: models.DirectionInflow,
			TransferCount: 1,
			LastTransfer:  ts,
		},
	}
	transfers := []models.ClassifiedTransfer{
		{
			TokenTransferEvent: models.TokenTransferEvent{
				TokenName:   "Tether USD",
				TokenSymbol: "USDT",
				TxHash:      "0xdef456",
				Timestamp:   ts,
			},
			Direction:     models.DirectionInflow,
			DisplayAmount: decimal.RequireFromString("1.5"),
		},
	}
	return summaries, transfers
}

func TestDeepSeekSummarizer_SummarizeActivity(t *testing.T) {
	const narrative = "The wallet saw a single small USDT inflow and no outgoing transfers."

	var gotRequest chatRequest
	server, s := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(`{"choices":[{"message":{"content":"` + narrative + `"}}]}`))
		require.NoError(t, err)
	})
	defer server.Close()

	summaries, transfers := sampleActivity()
	got, err := s.SummarizeActivity(context.Background(), "0x6dd63e4dd6201b20bc754b93b07de351ba053fd2", summaries, transfers)

	require.NoError(t, err)
	assert.Equal(t, narrative, got)

	assert.Equal(t, defaultModel, gotRequest.Model)
	require.Len(t, gotRequest.Messages, 2)
	assert.Equal(t, "system", gotRequest.Messages[0].Role)
	assert.Contains(t, gotRequest.Messages[1].Content, "1.5 USDT")
	assert.Equal(t, 600, gotRequest.MaxTokens)
}

func TestDeepSeekSummarizer_ErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
	}{
		{
			name:       "api error body",
			statusCode: http.StatusOK,
			body:       `{"error":{"message":"insufficient quota"}}`,
		},
		{
			name:       "empty choices",
			statusCode: http.StatusOK,
			body:       `{"choices":[]}`,
		},
		{
			name:       "http error",
			statusCode: http.StatusServiceUnavailable,
			body:       `upstream down`,
		},
		{
			name:       "invalid json",
			statusCode: http.StatusOK,
			body:       `not json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, s := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, err := w.Write([]byte(tt.body))
				require.NoError(t, err)
			})
			defer server.Close()

			summaries, transfers := sampleActivity()
			_, err := s.SummarizeActivity(context.Background(), "0x6dd63e4dd6201b20bc754b93b07de351ba053fd2", summaries, transfers)
			assert.Error(t, err)
		})
	}
}

func TestNewDeepSeekSummarizer_DefaultModel(t *testing.T) {
	s := NewDeepSeekSummarizer("test-key", "", 600, 0.3)
	assert.Equal(t, defaultModel, s.model)
}
