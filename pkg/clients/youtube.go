package clients

import (
	"context"
	"fmt"

	"emotion-backend/pkg/models"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTube searches for videos with the YouTube Data API.
type YouTube struct {
	svc *youtube.Service
}

// NewYouTube creates a search client. A non-empty endpoint overrides the
// public API root.
func NewYouTube(ctx context.Context, apiKey, endpoint string) (*YouTube, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube: api key is required")
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &YouTube{svc: svc}, nil
}

// Search returns up to n medium-length, safe-search filtered videos for
// query ordered by relevance.
func (y *YouTube) Search(ctx context.Context, query string, n int) ([]models.VideoRecommendation, error) {
	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(n)).
		Order("relevance").
		VideoDuration("medium").
		SafeSearch("strict").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	videos := make([]models.VideoRecommendation, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		v := models.VideoRecommendation{
			Title:   item.Snippet.Title,
			VideoID: item.Id.VideoId,
			URL:     WatchURL(item.Id.VideoId),
		}
		if th := item.Snippet.Thumbnails; th != nil && th.Medium != nil {
			v.Thumbnail = th.Medium.Url
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
