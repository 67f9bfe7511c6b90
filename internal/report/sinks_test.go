package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	return &Report{
		Subject: "Assessment report: Ann (SUBMIT)",
		Text:    "Assessment report for Ann <ann@example.com>\n",
		Payload: Payload{
			Name:         "Ann",
			Email:        "ann@example.com",
			FinishReason: "SUBMIT",
			Answers: []AnswerItem{
				{Question: "What is 2+3?", Answer: "five"},
				{Question: "Untouched", Answer: "(no answer)"},
			},
		},
	}
}

func TestWebhookSinkPostsPayload(t *testing.T) {
	var received Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL)
	require.NoError(t, sink.Deliver(context.Background(), sampleReport()))

	assert.Equal(t, "ann@example.com", received.Email)
	require.Len(t, received.Answers, 2)
	assert.Equal(t, "(no answer)", received.Answers[1].Answer)
}

func TestWebhookSinkRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL)
	assert.Error(t, sink.Deliver(context.Background(), sampleReport()))
}

func TestWebhookSinkHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	sink := NewWebhookSink(srv.URL)
	assert.Error(t, sink.Deliver(ctx, sampleReport()))
}

func TestDocStoreSinkCreatesDocument(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Master-Key")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink := NewDocStoreSink(srv.URL+"/", "master-key")
	require.NoError(t, sink.Deliver(context.Background(), sampleReport()))

	assert.Equal(t, "/b", gotPath)
	assert.Equal(t, "master-key", gotKey)
}

func TestDocStoreSinkRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sink := NewDocStoreSink(srv.URL, "wrong-key")
	assert.Error(t, sink.Deliver(context.Background(), sampleReport()))
}
