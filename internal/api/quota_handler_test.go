package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/quota"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuotaHandler(t *testing.T) {
	ledger := quota.NewLedger(config.QuotaConfig{DailyLimit: 100}, nil)
	ledger.Record(30)

	handler := NewQuotaHandler(ledger, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
	handler.GetQuota(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status quota.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 100, status.Limit)
	assert.Equal(t, 30, status.Used)
	assert.Equal(t, 70, status.Remaining)
	assert.True(t, status.CanMakeRequest)
}

func TestCheckProcessingHandler(t *testing.T) {
	ledger := quota.NewLedger(config.QuotaConfig{DailyLimit: 10}, nil)
	handler := NewQuotaHandler(ledger, nil)

	t.Run("within budget", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/quota/check?chunks=5", nil)
		handler.CheckProcessing(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var advisory quota.Advisory
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &advisory))
		assert.True(t, advisory.CanProcess)
	})

	t.Run("over budget", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/quota/check?chunks=50", nil)
		handler.CheckProcessing(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var advisory quota.Advisory
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &advisory))
		assert.False(t, advisory.CanProcess)
	})
}
