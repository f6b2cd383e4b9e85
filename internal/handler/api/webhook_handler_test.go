package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finbox/payhook/internal/domain"
	"github.com/finbox/payhook/internal/repository/memory"
	"github.com/finbox/payhook/internal/usecase"
)

type testServer struct {
	router *gin.Engine
	store  *memory.TransactionStore
	queue  *memory.Queue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewTransactionStore()
	queue := memory.NewQueue(64)

	intakeUC := usecase.NewIntakeUsecase(store, queue)
	queryUC := usecase.NewQueryUsecase(store)

	router := gin.New()
	SetupRoutes(router, NewWebhookHandler(intakeUC), NewTransactionHandler(queryUC))

	return &testServer{router: router, store: store, queue: queue}
}

func (s *testServer) postWebhook(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/transactions", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func webhookBody(id string) string {
	return `{
		"transaction_id": "` + id + `",
		"source_account": "acc-1",
		"destination_account": "acc-2",
		"amount": "100.50",
		"currency": "USD"
	}`
}

func TestReceiveTransactionAccepted(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.postWebhook(t, webhookBody("tx-1"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body["ack"])
	_, hasNote := body["note"]
	assert.False(t, hasNote)

	length, err := srv.queue.GetQueueLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestReceiveTransactionDuplicate(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusAccepted, srv.postWebhook(t, webhookBody("tx-1")).Code)

	rec := srv.postWebhook(t, webhookBody("tx-1"))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body["ack"])
	assert.Equal(t, "duplicate", body["note"])

	// The duplicate must not enqueue a second job
	length, err := srv.queue.GetQueueLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestReceiveTransactionMalformedJSON(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.postWebhook(t, `{"transaction_id": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiveTransactionValidationFailure(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing transaction id",
			body: `{"transaction_id":"","source_account":"a","destination_account":"b","amount":"10.00","currency":"USD"}`,
		},
		{
			name: "non-positive amount",
			body: `{"transaction_id":"tx-neg","source_account":"a","destination_account":"b","amount":"-5.00","currency":"USD"}`,
		},
		{
			name: "missing currency",
			body: `{"transaction_id":"tx-cur","source_account":"a","destination_account":"b","amount":"10.00","currency":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.postWebhook(t, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	// Rejected payloads leave no trace in the store or queue
	length, err := srv.queue.GetQueueLength(context.Background())
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestReceiveTransactionAmountPrecision(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusAccepted, srv.postWebhook(t, webhookBody("tx-amt")).Code)

	tx, err := srv.store.GetByTransactionID(context.Background(), "tx-amt")
	require.NoError(t, err)
	assert.Equal(t, "100.5", tx.Amount.String())
	assert.Equal(t, domain.StatusProcessing, tx.Status)
}
