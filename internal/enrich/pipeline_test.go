package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/screenloom/backend/internal/models"
	"github.com/screenloom/backend/internal/recordings"
	"github.com/screenloom/backend/pkg/capture"
	"github.com/screenloom/backend/pkg/database"
	"github.com/screenloom/backend/pkg/queue"
)

type fakeClient struct {
	video      *capture.Video
	findErr    error
	indexErr   error
	transcript string
	subtitle   string
	style      capture.SubtitleStyle
}

func (f *fakeClient) FindVideo(ctx context.Context, videoID string) (*capture.Video, error) {
	return f.video, f.findErr
}

func (f *fakeClient) IndexSpokenWords(ctx context.Context, videoID string) error {
	return f.indexErr
}

func (f *fakeClient) TranscriptText(ctx context.Context, videoID string) (string, error) {
	return f.transcript, nil
}

func (f *fakeClient) SubtitledStream(ctx context.Context, videoID string, style capture.SubtitleStyle) (string, error) {
	f.style = style
	return f.subtitle, nil
}

func newPipelineFixture(t *testing.T, client *fakeClient) (*Pipeline, *recordings.Repository) {
	t.Helper()
	db, err := database.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	repo := recordings.NewRepository(db)
	p := NewPipeline(repo, queue.New(4, nil),
		func(apiKey string) IndexingClient { return client },
		nil, nil)
	return p, repo
}

func seedRecording(t *testing.T, repo *recordings.Repository) *models.Recording {
	t.Helper()
	rec := &models.Recording{
		VideoID:   "v1",
		StreamURL: "https://cdn.example.com/raw.m3u8",
		PlayerURL: "https://play.example.com/embed?url=https%3A%2F%2Fcdn.example.com%2Fraw.m3u8&autoplay=1",
		SessionID: "sess1",
	}
	require.NoError(t, repo.Create(context.Background(), rec))
	return rec
}

func TestProcessSuccessMarksReady(t *testing.T) {
	dur := 42.5
	client := &fakeClient{
		video:      &capture.Video{ID: "v1", Duration: &dur},
		transcript: "hello world",
		subtitle:   "https://cdn.example.com/subbed.m3u8",
	}
	p, repo := newPipelineFixture(t, client)
	rec := seedRecording(t, repo)

	p.Process(context.Background(), queue.EnrichPayload{RecordingID: rec.ID, VideoID: "v1", APIKey: "k"})

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InsightsStatusReady, got.InsightsStatus)
	assert.Equal(t, "https://cdn.example.com/subbed.m3u8", got.StreamURL)
	assert.JSONEq(t, `{"transcript":"hello world"}`, got.Insights)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 42.5, *got.Duration)
	assert.Equal(t, DefaultSubtitleStyle, client.style)
}

func TestProcessRewritesPlayerURLParam(t *testing.T) {
	client := &fakeClient{
		video:    &capture.Video{ID: "v1"},
		subtitle: "https://cdn.example.com/subbed.m3u8",
	}
	p, repo := newPipelineFixture(t, client)
	rec := seedRecording(t, repo)

	p.Process(context.Background(), queue.EnrichPayload{RecordingID: rec.ID, VideoID: "v1", APIKey: "k"})

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Contains(t, got.PlayerURL, "url=https%3A%2F%2Fcdn.example.com%2Fsubbed.m3u8")
	assert.Contains(t, got.PlayerURL, "autoplay=1")
}

func TestProcessVideoNotFoundMarksFailed(t *testing.T) {
	client := &fakeClient{findErr: capture.ErrVideoNotFound}
	p, repo := newPipelineFixture(t, client)
	rec := seedRecording(t, repo)

	p.Process(context.Background(), queue.EnrichPayload{RecordingID: rec.ID, VideoID: "v1", APIKey: "k"})

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InsightsStatusFailed, got.InsightsStatus)
	assert.Equal(t, "https://cdn.example.com/raw.m3u8", got.StreamURL)
}

func TestProcessEmptyResultsStayPartial(t *testing.T) {
	// No transcript and no subtitled stream is still a success; the raw
	// stream and player URLs stay untouched.
	client := &fakeClient{video: &capture.Video{ID: "v1"}}
	p, repo := newPipelineFixture(t, client)
	rec := seedRecording(t, repo)

	p.Process(context.Background(), queue.EnrichPayload{RecordingID: rec.ID, VideoID: "v1", APIKey: "k"})

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InsightsStatusReady, got.InsightsStatus)
	assert.Equal(t, "https://cdn.example.com/raw.m3u8", got.StreamURL)
	assert.Empty(t, got.Insights)
	assert.Nil(t, got.Duration)
}

func TestProcessUnknownRecordingIsNoOp(t *testing.T) {
	client := &fakeClient{video: &capture.Video{ID: "v1"}}
	p, _ := newPipelineFixture(t, client)

	p.Process(context.Background(), queue.EnrichPayload{RecordingID: 9999, VideoID: "v1", APIKey: "k"})
}

func TestRewritePlayerURL(t *testing.T) {
	cases := []struct {
		name     string
		player   string
		subtitle string
		want     string
	}{
		{
			name:     "url param rewritten",
			player:   "https://play.example.com/embed?url=old&theme=dark",
			subtitle: "new",
			want:     "https://play.example.com/embed?theme=dark&url=new",
		},
		{
			name:     "no url param replaced outright",
			player:   "https://play.example.com/embed/abc",
			subtitle: "new",
			want:     "new",
		},
		{
			name:     "empty player replaced",
			player:   "",
			subtitle: "new",
			want:     "new",
		},
		{
			name:     "unparseable player replaced",
			player:   "http://bad url\x7f",
			subtitle: "new",
			want:     "new",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rewritePlayerURL(tc.player, tc.subtitle))
		})
	}
}
