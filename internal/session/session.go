package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/alanbriolat/youtube-to-go"
	"github.com/alanbriolat/youtube-to-go/generic"
	"github.com/alanbriolat/youtube-to-go/internal/catalog"
	"github.com/alanbriolat/youtube-to-go/internal/sync_"
	"github.com/alanbriolat/youtube-to-go/internal/transcode"
)

var (
	ErrMissingAPIKey = errors.New("API key must be provided when a channel is specified")
)

// A CatalogBuilder writes the catalog of a channel to path, returning how many entries it wrote.
type CatalogBuilder interface {
	Build(ctx context.Context, channel string, path string) (int, error)
}

type Config struct {
	// API key for the YouTube Data API, only needed for channel downloads.
	APIKey string
	// Convert downloaded media to audio.
	Audio bool
	// Delete an existing catalog before a channel download, so it gets rebuilt.
	RebuildCatalog bool

	Layout youtube_to_go.Layout
	// Maximum number of concurrent fetches in a channel download.
	Concurrency int

	ConvertCommand     string
	ConvertConcurrency int
	SourceExt          string
	TargetExt          string

	// The fetch index. Without one, a repeated fetch still asks the provider for the target filename.
	Database         Database
	ProviderRegistry *youtube_to_go.ProviderRegistry
	// Provider, if set, names the only registered provider that URLs are matched against.
	Provider          string
	NewCatalogBuilder func(ctx context.Context, apiKey string) (CatalogBuilder, error)

	// ProgressCallback, if set, is asked for a byte progress callback for each download that actually starts.
	ProgressCallback func(url string) func(downloaded int64, expected int64)
	// OnFetch, if set, is called once per finished fetch task of a channel download.
	OnFetch func(url string, result *FetchResult, err error)
}

var DefaultConfig = Config{
	Layout:             youtube_to_go.NewLayout(),
	Concurrency:        4,
	ConvertCommand:     transcode.DefaultCommand,
	ConvertConcurrency: transcode.DefaultConcurrency,
	SourceExt:          ".mp4",
	TargetExt:          ".mp3",
	Database:           NilDatabase{},
	ProviderRegistry:   &youtube_to_go.DefaultProviderRegistry,
	NewCatalogBuilder:  newCatalogBuilder,
}

func newCatalogBuilder(ctx context.Context, apiKey string) (CatalogBuilder, error) {
	service, err := catalog.NewService(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return catalog.NewBuilder(service), nil
}

// A Session runs downloads and conversions with one Config.
type Session struct {
	config    Config
	converter *transcode.Converter
	log       *zap.SugaredLogger

	// Target paths currently being fetched.
	claims *sync_.Mutexed[generic.Set[string]]
}

func New(config Config) (*Session, error) {
	if config.Database == nil {
		config.Database = NilDatabase{}
	}
	if config.ProviderRegistry == nil {
		config.ProviderRegistry = &youtube_to_go.DefaultProviderRegistry
	}
	if config.NewCatalogBuilder == nil {
		config.NewCatalogBuilder = newCatalogBuilder
	}
	if config.Provider != "" {
		known := config.ProviderRegistry.List()
		if !generic.NewSet(known...).Contains(config.Provider) {
			return nil, fmt.Errorf("%w %q, expected one of: %s", youtube_to_go.ErrUnknownProvider, config.Provider, strings.Join(known, ", "))
		}
	}
	if config.Concurrency < 1 {
		config.Concurrency = DefaultConfig.Concurrency
	}
	converter, err := transcode.NewConverter(config.ConvertCommand, config.ConvertConcurrency)
	if err != nil {
		return nil, err
	}
	return &Session{
		config:    config,
		converter: converter,
		log:       zap.S().Named("session"),
		claims:    sync_.NewMutexed(generic.NewSet[string]()),
	}, nil
}

// claim marks path as being fetched, returning false if another fetch already holds it.
func (s *Session) claim(path string) (release func(), ok bool) {
	_ = s.claims.Locked(func(paths generic.Set[string]) error {
		ok = paths.Add(path)
		return nil
	})
	if !ok {
		return nil, false
	}
	return func() {
		_ = s.claims.Locked(func(paths generic.Set[string]) error {
			paths.Remove(path)
			return nil
		})
	}, true
}
