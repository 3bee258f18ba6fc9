package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/youtube-to-go"
	"github.com/alanbriolat/youtube-to-go/util"
)

var (
	ErrNoStream = errors.New("no downloadable stream")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Config holds what the provider needs to talk to YouTube.
type Config struct {
	HTTPClient *http.Client
}

func (c Config) client() *youtube.Client {
	return &youtube.Client{HTTPClient: c.HTTPClient}
}

func (c Config) Match(s string) (youtube_to_go.Source, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	videoID, err := extractVideoID(parsedURL)
	if err != nil {
		return nil, err
	}
	return &source{videoID: videoID, client: c.client()}, nil
}

func (c Config) Provider() youtube_to_go.Provider {
	return youtube_to_go.Provider{Name: "youtube", Match: c.Match}
}

func New() youtube_to_go.Provider {
	return Config{}.Provider()
}

type source struct {
	videoID string
	client  *youtube.Client
}

func (s *source) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", s.videoID)
}

func (s *source) ID() string {
	return s.videoID
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (youtube_to_go.ResolvedSource, error) {
	videoDetails, err := s.client.GetVideoContext(ctx, s.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	videoFormat := highestResolution(videoDetails.Formats)
	if videoFormat == nil {
		return nil, fmt.Errorf("%s: %w", s.videoID, ErrNoStream)
	}
	return &resolvedSource{
		source:       *s,
		videoDetails: videoDetails,
		videoFormat:  videoFormat,
	}, nil
}

type resolvedSource struct {
	source
	videoDetails *youtube.Video
	videoFormat  *youtube.Format
}

func (s *resolvedSource) Download(d youtube_to_go.Download) error {
	stream, size, err := s.client.GetStreamContext(d.Context(), s.videoDetails, s.videoFormat)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()
	d.AddExpectedBytes(size)
	return d.SaveStream(s.Filename(), stream)
}

func (s *resolvedSource) String() string {
	return fmt.Sprintf("%s [%s]", s.videoDetails.Title, s.videoDetails.ID)
}

// Filename is the sanitised video title with the extension of the chosen stream, e.g. "Some Title.mp4".
func (s *resolvedSource) Filename() string {
	return util.SafeFilename(s.videoDetails.Title, s.videoID) + "." + extension(s.videoFormat.MimeType)
}

// highestResolution picks the progressive (audio+video) stream with the most pixels, preferring mp4 containers and
// then higher bitrates. Adaptive video-only streams are never chosen, since they would need muxing.
func highestResolution(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		if best == nil || better(f, best) {
			best = f
		}
	}
	return best
}

func better(a, b *youtube.Format) bool {
	aMP4, bMP4 := extension(a.MimeType) == "mp4", extension(b.MimeType) == "mp4"
	if aMP4 != bMP4 {
		return aMP4
	}
	if a.Height != b.Height {
		return a.Height > b.Height
	}
	return a.Bitrate > b.Bitrate
}

// extension turns `video/mp4; codecs="avc1.42001E, mp4a.40.2"` into "mp4".
func extension(mimeType string) string {
	mediaType := strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	parts := strings.SplitN(mediaType, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "bin"
	}
	return parts[1]
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www.|m.|music.)?youtube.com/(watch|details)?v={VIDEO_ID}
//	http(s?)://(www.|m.|music.)?youtube.com/(v|embed|shorts|live)/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(url *url.URL) (string, error) {
	var id string
	switch url.Hostname() {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		if url.Path == "/watch" || url.Path == "/details" {
			if !url.Query().Has("v") {
				return "", fmt.Errorf("missing ?v= query parameter")
			}
			id = url.Query().Get("v")
		} else {
			for _, prefix := range []string{"/v/", "/embed/", "/shorts/", "/live/"} {
				if strings.HasPrefix(url.Path, prefix) {
					id = strings.SplitN(strings.TrimPrefix(url.Path, prefix), "/", 2)[0]
					break
				}
			}
		}
	case "youtu.be":
		id = strings.Trim(url.Path, "/")
	default:
		return "", fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return "", fmt.Errorf("could not extract video ID")
	}
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid video ID %q", id)
	}
	return id, nil
}

func init() {
	youtube_to_go.DefaultProviderRegistry.MustAdd(New())
}
