package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Video is a provider-hosted video asset produced by an exported capture session.
type Video struct {
	ID        string   `json:"id"`
	StreamURL string   `json:"stream_url,omitempty"`
	PlayerURL string   `json:"player_url,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
}

// SubtitleStyle configures the provider's subtitle overlay rendering.
type SubtitleStyle struct {
	FontName      string `json:"font_name"`
	FontSize      int    `json:"font_size"`
	PrimaryColour string `json:"primary_colour"`
	Alignment     string `json:"alignment"`
}

// FindVideo looks up a video by id; unknown ids return ErrVideoNotFound.
func (c *Client) FindVideo(ctx context.Context, videoID string) (*Video, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/videos/"+videoID, nil)
	if err != nil {
		return nil, fmt.Errorf("find video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrVideoNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("find video: status %d", resp.StatusCode)
	}
	var v Video
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("find video: decode response: %w", err)
	}
	return &v, nil
}

// IndexSpokenWords triggers spoken-word indexing so the video becomes searchable.
func (c *Client) IndexSpokenWords(ctx context.Context, videoID string) error {
	if err := c.doJSON(ctx, http.MethodPost, "/v1/videos/"+videoID+"/index", map[string]string{"type": "spoken_word"}, nil); err != nil {
		return fmt.Errorf("index spoken words: %w", err)
	}
	return nil
}

// TranscriptText fetches the plain transcript text; empty when none exists yet.
func (c *Client) TranscriptText(ctx context.Context, videoID string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/videos/"+videoID+"/transcript", nil, &out); err != nil {
		return "", fmt.Errorf("transcript: %w", err)
	}
	return out.Text, nil
}

// SubtitledStream requests a subtitle-overlaid stream; returns the new stream
// URL, or empty when the provider produced none.
func (c *Client) SubtitledStream(ctx context.Context, videoID string, style SubtitleStyle) (string, error) {
	var out struct {
		StreamURL string `json:"stream_url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/videos/"+videoID+"/subtitles", style, &out); err != nil {
		return "", fmt.Errorf("subtitled stream: %w", err)
	}
	return out.StreamURL, nil
}
