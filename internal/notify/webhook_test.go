package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() Payload {
	return BuildPayload("db-timeouts", "DB timeout", 7, 15, "http://localhost:8080/api/v1/groups/abc")
}

func TestPayload_RoundTrip(t *testing.T) {
	p := samplePayload()

	body, err := json.Marshal(p)
	require.NoError(t, err)

	var got Payload
	require.NoError(t, json.Unmarshal(body, &got))

	assert.Equal(t, "db-timeouts", got.RuleName)
	assert.Equal(t, "DB timeout", got.Message)
	assert.Equal(t, 7, got.WindowCount)
	assert.Equal(t, 15, got.TimeWindowMinutes)
	assert.Equal(t, p.Text, got.Text)
}

func TestBuildPayload_TextContainsEssentials(t *testing.T) {
	p := samplePayload()
	assert.Contains(t, p.Text, "db-timeouts")
	assert.Contains(t, p.Text, "DB timeout")
	assert.Contains(t, p.Text, "7 events")
	assert.Contains(t, p.Text, "15 minutes")
	assert.Contains(t, p.Text, "http://localhost:8080/api/v1/groups/abc")
}

func TestWebhookChannel_PostsJSONPayload(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 2*time.Second)
	err := ch.Send(context.Background(), samplePayload())
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotContentType)

	var p Payload
	require.NoError(t, json.Unmarshal(gotBody, &p))
	assert.Equal(t, "db-timeouts", p.RuleName)
	assert.Equal(t, 7, p.WindowCount)
}

func TestWebhookChannel_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 2*time.Second)
	err := ch.Send(context.Background(), samplePayload())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSendFailed))
}

func TestWebhookChannel_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ch := NewWebhookChannel(srv.URL, 20*time.Millisecond)
	err := ch.Send(context.Background(), samplePayload())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChannelTimeout), "got: %v", err)
}

func TestSlackChannel_PostsTextOnly(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewSlackChannel(srv.URL, 2*time.Second)
	require.NoError(t, ch.Send(context.Background(), samplePayload()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Contains(t, decoded, "text")
	assert.Len(t, decoded, 1, "slack payload must be the fixed {text} shape")
}

func TestLogChannel_NeverFails(t *testing.T) {
	ch := NewLogChannel()
	assert.NoError(t, ch.Send(context.Background(), samplePayload()))
}
