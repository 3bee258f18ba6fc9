package raw

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/alanbriolat/youtube-to-go"
	"github.com/alanbriolat/youtube-to-go/generic"
	"github.com/alanbriolat/youtube-to-go/util"
)

// Config controls which direct media URLs the raw provider accepts.
type Config struct {
	Protocols  generic.Set[string]
	Extensions generic.Set[string]
}

func NewConfig() Config {
	return Config{
		Protocols: generic.NewSet(
			"http",
			"https",
		),
		Extensions: generic.NewSet(
			"flv",
			"m4a",
			"m4v",
			"mkv",
			"mp3",
			"mp4",
			"webm",
		),
	}
}

func (c Config) Match(s string) (youtube_to_go.Source, error) {
	// Expect string to be a URL
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	// Check that scheme/protocol is valid
	if !c.Protocols.Contains(parsedURL.Scheme) {
		return nil, fmt.Errorf("unknown URL scheme %v", parsedURL.Scheme)
	}
	// Attempt to extract filename and extension
	filename, err := util.FilenameFromURL(parsedURL)
	if err != nil {
		return nil, err
	}
	extension := strings.TrimPrefix(path.Ext(filename), ".")
	if extension == "" {
		return nil, fmt.Errorf("no file extension found")
	}
	if !c.Extensions.Contains(strings.ToLower(extension)) {
		return nil, fmt.Errorf("unknown file extension %v", extension)
	}
	return &source{url: s, filename: filename}, nil
}

func (c Config) Provider() youtube_to_go.Provider {
	return youtube_to_go.Provider{
		Name:  "raw",
		Match: c.Match,
	}
}

type source struct {
	url      string
	filename string
}

func (s *source) URL() string {
	return s.url
}

// ID is the filename without its extension.
func (s *source) ID() string {
	return strings.TrimSuffix(s.filename, path.Ext(s.filename))
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context) (youtube_to_go.ResolvedSource, error) {
	return s, nil
}

func (s *source) Filename() string {
	return s.filename
}

// Download uses the Download's own HTTP client and context.
func (s *source) Download(d youtube_to_go.Download) error {
	return d.SaveURL(s.filename, s.url)
}

func init() {
	youtube_to_go.DefaultProviderRegistry.MustAdd(
		NewConfig().Provider().WithPriority(youtube_to_go.PriorityLowest),
	)
}
