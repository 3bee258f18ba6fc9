package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/youtube/v3"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	// ErrTransient marks failures that may succeed if tried again later (rate limits, server errors, network).
	ErrTransient = errors.New("transient API failure")
)

var channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)

// Resolver turns a channel identifier (username, handle, search term or channel ID) into a channel ID.
type Resolver struct {
	service *youtube.Service
	log     *zap.SugaredLogger
}

func NewResolver(service *youtube.Service) *Resolver {
	return &Resolver{service: service, log: zap.S().Named("catalog")}
}

// Resolve looks the identifier up as a username first and falls back to a channel search if the username is not
// found or the lookup is rejected. Transient failures are returned as-is (wrapping ErrTransient) without trying the
// fallback, leaving the retry decision to the caller.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimPrefix(strings.TrimSpace(identifier), "@")
	if identifier == "" {
		return "", fmt.Errorf("empty channel identifier: %w", ErrChannelNotFound)
	}
	if channelIDPattern.MatchString(identifier) {
		return identifier, nil
	}

	channelID, err := r.lookupUsername(ctx, identifier)
	switch {
	case err == nil:
		return channelID, nil
	case errors.Is(err, ErrTransient):
		return "", err
	}
	r.log.Debugf("username lookup for %q failed, searching instead: %v", identifier, err)

	return r.search(ctx, identifier)
}

func (r *Resolver) lookupUsername(ctx context.Context, username string) (string, error) {
	resp, err := r.service.Channels.List([]string{"id"}).ForUsername(username).Context(ctx).Do()
	if err != nil {
		return "", classify(fmt.Errorf("channel lookup: %w", err))
	}
	for _, item := range resp.Items {
		if item != nil && item.Id != "" {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("username %q: %w", username, ErrChannelNotFound)
}

func (r *Resolver) search(ctx context.Context, query string) (string, error) {
	resp, err := r.service.Search.List([]string{"id"}).Q(query).Type("channel").MaxResults(1).Context(ctx).Do()
	if err != nil {
		return "", classify(fmt.Errorf("channel search: %w", err))
	}
	for _, item := range resp.Items {
		if item != nil && item.Id != nil && item.Id.ChannelId != "" {
			return item.Id.ChannelId, nil
		}
	}
	return "", fmt.Errorf("search %q: %w", query, ErrChannelNotFound)
}

// classify attaches ErrChannelNotFound or ErrTransient to API errors where the cause is clear. Anything else is a
// permanent failure and is returned unchanged.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrChannelNotFound, err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return err
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

// UploadsPlaylistID derives the ID of a channel's auto-generated uploads playlist, by replacing the second character
// of the channel ID ("UC...") with "U" ("UU...").
func UploadsPlaylistID(channelID string) (string, error) {
	runes := []rune(channelID)
	if len(runes) < 2 {
		return "", fmt.Errorf("invalid channel ID %q", channelID)
	}
	runes[1] = 'U'
	return string(runes), nil
}
