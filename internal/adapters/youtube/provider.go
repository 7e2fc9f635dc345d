// Package youtube implements the broadcast provider on the YouTube Live
// Streaming API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/bft-labs/streamkeeper/internal/domain"
	"github.com/bft-labs/streamkeeper/pkg/log"
)

// WatchURLPrefix is the public viewing URL of a broadcast, minus its id.
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// transitionComplete is the broadcastStatus that ends a live broadcast.
const transitionComplete = "complete"

// Provider manages live broadcasts on YouTube.
type Provider struct {
	api    liveAPI
	logger log.Logger
	now    func() time.Time
}

// New creates a provider authenticated by ts. Extra client options, such as
// an endpoint override, are appended.
func New(ctx context.Context, ts oauth2.TokenSource, logger log.Logger, opts ...option.ClientOption) (*Provider, error) {
	if ts != nil {
		opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return newProvider(serviceAPI{svc: svc}, logger), nil
}

func newProvider(api liveAPI, logger log.Logger) *Provider {
	return &Provider{api: api, logger: logger, now: time.Now}
}

// Create inserts a broadcast, resolves its ingestion stream and binds the
// two. A broadcast left unbound by a failure is deleted again.
func (p *Provider) Create(ctx context.Context, spec domain.CreateSpec) (domain.Broadcast, error) {
	b, err := p.api.InsertBroadcast(ctx, &yt.LiveBroadcast{
		Snippet: &yt.LiveBroadcastSnippet{
			Title:              spec.Title,
			Description:        spec.Description,
			ScheduledStartTime: p.now().UTC().Format(time.RFC3339),
		},
		Status: &yt.LiveBroadcastStatus{
			PrivacyStatus:           spec.Visibility,
			SelfDeclaredMadeForKids: spec.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
		ContentDetails: &yt.LiveBroadcastContentDetails{
			EnableAutoStart: spec.AutoStart,
			EnableAutoStop:  spec.AutoStop,
			ForceSendFields: []string{"EnableAutoStart", "EnableAutoStop"},
		},
	})
	if err != nil {
		return domain.Broadcast{}, fmt.Errorf("insert broadcast: %w", err)
	}

	stream, err := p.resolveStream(ctx, spec)
	if err != nil {
		p.deleteUnbound(ctx, b.Id)
		return domain.Broadcast{}, fmt.Errorf("resolve stream: %w", err)
	}

	key, url, err := ingestion(stream)
	if err != nil {
		p.deleteUnbound(ctx, b.Id)
		return domain.Broadcast{}, err
	}

	if err := p.api.BindBroadcast(ctx, b.Id, stream.Id); err != nil {
		p.deleteUnbound(ctx, b.Id)
		return domain.Broadcast{}, fmt.Errorf("bind broadcast %s to stream %s: %w", b.Id, stream.Id, err)
	}

	if spec.AgeRestricted {
		if err := p.api.SetAgeRestricted(ctx, b.Id); err != nil {
			p.logger.Warn("could not age-restrict broadcast", log.String("resource_id", b.Id), log.Err(err))
		}
	}

	title := spec.Title
	if b.Snippet != nil && b.Snippet.Title != "" {
		title = b.Snippet.Title
	}

	return domain.Broadcast{
		ResourceID:   b.Id,
		Title:        title,
		IngestionKey: key,
		IngestionURL: url,
		ViewURL:      WatchURLPrefix + b.Id,
	}, nil
}

func (p *Provider) resolveStream(ctx context.Context, spec domain.CreateSpec) (*yt.LiveStream, error) {
	if spec.StreamID != "" {
		s, err := p.api.GetStream(ctx, spec.StreamID)
		if err != nil {
			return nil, fmt.Errorf("get stream %s: %w", spec.StreamID, err)
		}
		p.logger.Debug("reusing stream", log.String("stream_id", s.Id))
		return s, nil
	}

	title := spec.Title
	if spec.StreamTitle != "" {
		title = spec.StreamTitle
		streams, err := p.api.ListMyStreams(ctx)
		if err != nil {
			return nil, fmt.Errorf("list streams: %w", err)
		}
		for _, s := range streams {
			if s.Snippet != nil && s.Snippet.Title == title {
				p.logger.Debug("reusing stream", log.String("stream_id", s.Id), log.String("stream_title", title))
				return s, nil
			}
		}
	}

	s, err := p.api.InsertStream(ctx, &yt.LiveStream{
		Snippet: &yt.LiveStreamSnippet{Title: title},
		Cdn: &yt.CdnSettings{
			Resolution:    spec.Resolution,
			FrameRate:     spec.FrameRate,
			IngestionType: "rtmp",
		},
		ContentDetails: &yt.LiveStreamContentDetails{
			IsReusable:      true,
			ForceSendFields: []string{"IsReusable"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("insert stream: %w", err)
	}
	p.logger.Debug("created stream", log.String("stream_id", s.Id), log.String("stream_title", title))
	return s, nil
}

func ingestion(s *yt.LiveStream) (key, url string, err error) {
	if s.Cdn == nil || s.Cdn.IngestionInfo == nil || s.Cdn.IngestionInfo.StreamName == "" {
		return "", "", fmt.Errorf("stream %s has no ingestion info", s.Id)
	}
	return s.Cdn.IngestionInfo.StreamName, s.Cdn.IngestionInfo.IngestionAddress, nil
}

func (p *Provider) deleteUnbound(ctx context.Context, id string) {
	if err := p.api.DeleteBroadcast(context.WithoutCancel(ctx), id); err != nil {
		p.logger.Warn("failed to delete unbound broadcast", log.String("resource_id", id), log.Err(err))
	}
}

// LifecycleState returns the broadcast's lifeCycleStatus, or an error
// wrapping domain.ErrNotFound if it does not exist.
func (p *Provider) LifecycleState(ctx context.Context, id string) (domain.LifecycleState, error) {
	b, err := p.api.GetBroadcast(ctx, id)
	if err != nil {
		return "", err
	}
	if b.Status == nil {
		return "", nil
	}
	return domain.LifecycleState(b.Status.LifeCycleStatus), nil
}

// End retires a broadcast according to its current state: one that is or
// was live is transitioned to complete, one that never went live is
// deleted, and a terminal or missing one is left alone.
func (p *Provider) End(ctx context.Context, id string) error {
	state, err := p.LifecycleState(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.Debug("broadcast already gone", log.String("resource_id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("query state: %w", err)
	}

	switch state.Bucket() {
	case domain.BucketTerminal:
		p.logger.Debug("broadcast already ended", log.String("resource_id", id), log.String("state", string(state)))
		return nil
	case domain.BucketNotYetLive:
		err = p.api.DeleteBroadcast(ctx, id)
	default:
		err = p.api.TransitionBroadcast(ctx, id, transitionComplete)
	}

	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}
