package capture

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", nil)
}

func TestRequestsCarryAPIKeyHeader(t *testing.T) {
	var gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		w.WriteHeader(http.StatusOK)
	})

	ok, err := client.VerifyKey(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "test-key", gotKey)
}

func TestVerifyKeyRejectedIsNotAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	ok, err := client.VerifyKey(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateSessionPostsCallback(t *testing.T) {
	var gotPath string
	var gotBody CreateSessionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(Session{SessionID: "sess1", Status: "created"})
	})

	sess, err := client.CreateSession(context.Background(), CreateSessionRequest{
		EndUserID:   "user-1",
		CallbackURL: "https://x.trycloudflare.com/webhook",
	})
	require.NoError(t, err)
	assert.Equal(t, "/v1/capture/sessions", gotPath)
	assert.Equal(t, "https://x.trycloudflare.com/webhook", gotBody.CallbackURL)
	assert.Equal(t, "sess1", sess.SessionID)
}

func TestSessionActionHitsActionPath(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.SessionAction(context.Background(), "sess1", "pause"))
	assert.Equal(t, "/v1/capture/sessions/sess1/pause", gotPath)
}

func TestFindVideoUnknownIDIsTypedError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.FindVideo(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestFindVideoDecodesDuration(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/videos/v1", r.URL.Path)
		w.Write([]byte(`{"id":"v1","stream_url":"s1","duration":12.5}`))
	})

	video, err := client.FindVideo(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", video.ID)
	require.NotNil(t, video.Duration)
	assert.Equal(t, 12.5, *video.Duration)
}

func TestUnauthorizedBecomesInvalidAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := client.IndexSpokenWords(context.Background(), "v1")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}

func TestSubtitledStreamSendsStyle(t *testing.T) {
	var gotStyle SubtitleStyle
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotStyle))
		w.Write([]byte(`{"stream_url":"subbed"}`))
	})

	style := SubtitleStyle{FontName: "Roboto", FontSize: 22, PrimaryColour: "&H00FFFFFF", Alignment: "bottom_center"}
	url, err := client.SubtitledStream(context.Background(), "v1", style)
	require.NoError(t, err)
	assert.Equal(t, "subbed", url)
	assert.Equal(t, style, gotStyle)
}

func TestCacheReusesClientPerKey(t *testing.T) {
	cache := NewCache("http://localhost:0", 0, nil)
	a := cache.Get("key-1")
	b := cache.Get("key-1")
	c := cache.Get("key-2")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	cache.Clear()
	assert.NotSame(t, a, cache.Get("key-1"))
}
