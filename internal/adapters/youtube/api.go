package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"

	"github.com/bft-labs/streamkeeper/internal/domain"
)

// liveAPI is the slice of the YouTube Data API the provider drives.
type liveAPI interface {
	InsertBroadcast(ctx context.Context, b *yt.LiveBroadcast) (*yt.LiveBroadcast, error)
	GetBroadcast(ctx context.Context, id string) (*yt.LiveBroadcast, error)
	BindBroadcast(ctx context.Context, broadcastID, streamID string) error
	TransitionBroadcast(ctx context.Context, id, status string) error
	DeleteBroadcast(ctx context.Context, id string) error

	InsertStream(ctx context.Context, s *yt.LiveStream) (*yt.LiveStream, error)
	GetStream(ctx context.Context, id string) (*yt.LiveStream, error)
	ListMyStreams(ctx context.Context) ([]*yt.LiveStream, error)

	SetAgeRestricted(ctx context.Context, videoID string) error
}

var (
	broadcastParts = []string{"id", "snippet", "status", "contentDetails"}
	streamParts    = []string{"id", "snippet", "cdn", "status"}
)

// serviceAPI implements liveAPI on the generated client.
type serviceAPI struct {
	svc *yt.Service
}

func (a serviceAPI) InsertBroadcast(ctx context.Context, b *yt.LiveBroadcast) (*yt.LiveBroadcast, error) {
	out, err := a.svc.LiveBroadcasts.Insert([]string{"snippet", "status", "contentDetails"}, b).Context(ctx).Do()
	return out, mapErr(err)
}

func (a serviceAPI) GetBroadcast(ctx context.Context, id string) (*yt.LiveBroadcast, error) {
	resp, err := a.svc.LiveBroadcasts.List(broadcastParts).Id(id).Context(ctx).Do()
	if err != nil {
		return nil, mapErr(err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("broadcast %s: %w", id, domain.ErrNotFound)
	}
	return resp.Items[0], nil
}

func (a serviceAPI) BindBroadcast(ctx context.Context, broadcastID, streamID string) error {
	_, err := a.svc.LiveBroadcasts.Bind(broadcastID, []string{"id", "contentDetails"}).
		StreamId(streamID).
		Context(ctx).
		Do()
	return mapErr(err)
}

func (a serviceAPI) TransitionBroadcast(ctx context.Context, id, status string) error {
	_, err := a.svc.LiveBroadcasts.Transition(status, id, []string{"status"}).Context(ctx).Do()
	return mapErr(err)
}

func (a serviceAPI) DeleteBroadcast(ctx context.Context, id string) error {
	return mapErr(a.svc.LiveBroadcasts.Delete(id).Context(ctx).Do())
}

func (a serviceAPI) InsertStream(ctx context.Context, s *yt.LiveStream) (*yt.LiveStream, error) {
	out, err := a.svc.LiveStreams.Insert([]string{"snippet", "cdn", "contentDetails"}, s).Context(ctx).Do()
	return out, mapErr(err)
}

func (a serviceAPI) GetStream(ctx context.Context, id string) (*yt.LiveStream, error) {
	resp, err := a.svc.LiveStreams.List(streamParts).Id(id).Context(ctx).Do()
	if err != nil {
		return nil, mapErr(err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("stream %s: %w", id, domain.ErrNotFound)
	}
	return resp.Items[0], nil
}

func (a serviceAPI) ListMyStreams(ctx context.Context) ([]*yt.LiveStream, error) {
	var out []*yt.LiveStream
	err := a.svc.LiveStreams.List(streamParts).
		Mine(true).
		MaxResults(50).
		Pages(ctx, func(resp *yt.LiveStreamListResponse) error {
			out = append(out, resp.Items...)
			return nil
		})
	return out, mapErr(err)
}

func (a serviceAPI) SetAgeRestricted(ctx context.Context, videoID string) error {
	v := &yt.Video{
		Id: videoID,
		ContentDetails: &yt.VideoContentDetails{
			ContentRating: &yt.ContentRating{YtRating: "ytAgeRestricted"},
		},
	}
	_, err := a.svc.Videos.Update([]string{"contentDetails"}, v).Context(ctx).Do()
	return mapErr(err)
}

// mapErr translates a 404 from the API into domain.ErrNotFound.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}
