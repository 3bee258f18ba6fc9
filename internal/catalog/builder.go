package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// PageSize is the largest page the playlistItems API will return.
const PageSize = 50

const watchURLPrefix = "https://www.youtube.com/watch?v="

// NewService creates a YouTube Data API client authenticated with an API key.
func NewService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*youtube.Service, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube client: %w", err)
	}
	return service, nil
}

// Builder writes the catalog of all uploads of a channel.
type Builder struct {
	service  *youtube.Service
	resolver *Resolver
	log      *zap.SugaredLogger
}

func NewBuilder(service *youtube.Service) *Builder {
	return &Builder{
		service:  service,
		resolver: NewResolver(service),
		log:      zap.S().Named("catalog"),
	}
}

// Build resolves channel, then pages through its uploads playlist appending one entry per video to the catalog at
// path. It returns the number of entries written, which may be non-zero even when an error is returned.
func (b *Builder) Build(ctx context.Context, channel string, path string) (int, error) {
	channelID, err := b.resolver.Resolve(ctx, channel)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve channel %q: %w", channel, err)
	}
	playlistID, err := UploadsPlaylistID(channelID)
	if err != nil {
		return 0, err
	}
	b.log.Infof("Channel %q resolved to %s, listing uploads playlist %s", channel, channelID, playlistID)

	appender, err := OpenAppender(path)
	if err != nil {
		return 0, err
	}
	defer appender.Close()

	written := 0
	pageToken := ""
	for page := 1; ; page++ {
		call := b.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(PageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		response, err := call.Do()
		if err != nil {
			return written, fmt.Errorf("error fetching playlist items (page %d): %w", page, err)
		}
		for _, item := range response.Items {
			if item == nil || item.Snippet == nil || item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
				b.log.Warnf("Skipping playlist item with missing fields on page %d", page)
				continue
			}
			entry := NewEntry(item.Snippet.Title, watchURLPrefix+item.ContentDetails.VideoId)
			if err := appender.Append(entry); err != nil {
				return written, fmt.Errorf("failed to write catalog: %w", err)
			}
			written++
		}
		b.log.Debugf("Page %d: %d items, %d written so far", page, len(response.Items), written)

		pageToken = response.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if err := appender.Close(); err != nil {
		return written, fmt.Errorf("failed to write catalog: %w", err)
	}
	return written, nil
}
