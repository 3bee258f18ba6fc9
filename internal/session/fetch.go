package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alanbriolat/youtube-to-go"
	"github.com/alanbriolat/youtube-to-go/async"
)

// Why a fetch did not download anything.
type SkipReason string

const (
	NotSkipped SkipReason = ""
	// The fetch index knows the file and it still exists; nothing was requested from the provider.
	SkipIndexed SkipReason = "indexed"
	// The target file already exists.
	SkipExists SkipReason = "exists"
	// Another fetch in this session is already writing the same target file.
	SkipDuplicate SkipReason = "duplicate"
)

type FetchResult struct {
	URL     string
	ID      string
	Dir     string
	Path    string
	Size    int64
	Skipped SkipReason
}

// Fetch downloads the video at url into dir, or into the layout's video directory for the video's ID if dir is
// empty. It does nothing if the target file already exists. Only the fetch index lets a repeated fetch skip the
// provider entirely; without it the provider is still asked for the target filename.
func (s *Session) Fetch(ctx context.Context, url string, dir string) (*FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := youtube_to_go.Logger(ctx).Sugar().Named("fetch").With("url", url)

	match, err := s.match(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: match failed: %w", url, err)
	}
	id := match.Source.ID()
	if dir == "" {
		if dir, err = s.config.Layout.VideoDir(id); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
	}
	result := &FetchResult{URL: url, ID: id, Dir: dir}

	if record, err := s.config.Database.LookupFetch(url, dir); err != nil {
		log.Warnf("Fetch index lookup failed: %v", err)
	} else if record != nil {
		if info, err := os.Stat(record.Path); err == nil && info.Mode().IsRegular() {
			result.Path, result.Size, result.Skipped = record.Path, info.Size(), SkipIndexed
			log.Infof("Video %s already exists, skipping download", url)
			return result, nil
		}
	}

	log.Debugf("Starting recon with provider %s", match.ProviderName)
	resolved, err := match.Source.Recon(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: recon failed: %w", url, err)
	}
	result.Path = filepath.Join(dir, resolved.Filename())

	release, ok := s.claim(result.Path)
	if !ok {
		log.Warnf("Another download is already writing %s, skipping", result.Path)
		result.Skipped = SkipDuplicate
		return result, nil
	}
	defer release()

	if info, err := os.Stat(result.Path); err == nil {
		result.Size, result.Skipped = info.Size(), SkipExists
		log.Infof("Video %s already exists, skipping download", url)
		s.record(ctx, result)
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	builder := youtube_to_go.NewDownloadBuilder().WithContext(ctx).WithTargetDir(dir)
	if s.config.ProgressCallback != nil {
		builder.WithProgressCallback(s.config.ProgressCallback(url))
	}
	d, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	done := async.RunResult(func() (struct{}, error) {
		return struct{}{}, resolved.Download(d)
	})
	_, err = async.Await(ctx, done)
	if err != nil {
		if ctx.Err() != nil {
			// Let the download remove its partial file before the claim is released.
			<-done
		}
		return nil, fmt.Errorf("fetch %s: download failed: %w", url, err)
	}
	if saved := d.Saved(); len(saved) > 0 {
		result.Path = saved[len(saved)-1]
	}
	info, err := os.Stat(result.Path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: downloaded file missing: %w", url, err)
	}
	result.Size = info.Size()
	s.record(ctx, result)
	log.Infof("Downloaded %s as %s (%s)", url, result.Path, humanize.Bytes(uint64(result.Size)))
	return result, nil
}

func (s *Session) match(url string) (*youtube_to_go.Match, error) {
	if s.config.Provider != "" {
		return s.config.ProviderRegistry.MatchWith(s.config.Provider, url)
	}
	return s.config.ProviderRegistry.Match(url)
}

func (s *Session) record(ctx context.Context, result *FetchResult) {
	err := s.config.Database.WriteFetch(&FetchRecord{
		URL:       result.URL,
		ID:        result.ID,
		Dir:       result.Dir,
		Path:      result.Path,
		Size:      result.Size,
		FetchedAt: time.Now(),
	})
	if err != nil {
		youtube_to_go.Logger(ctx).Sugar().Named("fetch").Warnf("Failed to update fetch index for %s: %v", result.URL, err)
	}
}
