package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alanbriolat/youtube-to-go/internal/transcode"
)

// Summary is what a DownloadURL or DownloadChannel call did.
type Summary struct {
	Fetched []*FetchResult
	// Nil unless audio conversion ran.
	Conversion *transcode.Report
}

// DownloadURL fetches a single video into its own video directory, then converts it to audio if configured to.
func (s *Session) DownloadURL(ctx context.Context, url string) (*Summary, error) {
	result, err := s.Fetch(ctx, url, "")
	if err != nil {
		return nil, err
	}
	summary := &Summary{Fetched: []*FetchResult{result}}
	if !s.config.Audio {
		return summary, nil
	}
	audioDir, err := s.config.Layout.AudioDir(result.ID)
	if err != nil {
		return summary, err
	}
	summary.Conversion, err = s.convert(ctx, result.Dir, audioDir)
	return summary, err
}

// DownloadChannel builds the channel's catalog if it doesn't exist yet, fetches everything in it, then converts to
// audio if configured to. An API key is required even if the catalog already exists.
func (s *Session) DownloadChannel(ctx context.Context, channel string) (*Summary, error) {
	if s.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	catalogPath, err := s.config.Layout.CatalogFile(channel)
	if err != nil {
		return nil, err
	}
	videoDir, err := s.config.Layout.VideoDir(channel)
	if err != nil {
		return nil, err
	}
	audioDir, err := s.config.Layout.AudioDir(channel)
	if err != nil {
		return nil, err
	}

	if s.config.RebuildCatalog {
		if err := os.Remove(catalogPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove old catalog: %w", err)
		}
	}
	if err := s.ensureCatalog(ctx, channel, catalogPath); err != nil {
		return nil, err
	}

	results, err := s.FetchCatalog(ctx, catalogPath, videoDir)
	summary := &Summary{Fetched: results}
	if err != nil {
		return summary, err
	}
	if s.config.Audio {
		summary.Conversion, err = s.convert(ctx, videoDir, audioDir)
	}
	return summary, err
}

func (s *Session) ensureCatalog(ctx context.Context, channel string, catalogPath string) error {
	if _, err := os.Stat(catalogPath); err == nil {
		s.log.Infof("Catalog %s already exists, not rebuilding it", catalogPath)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	builder, err := s.config.NewCatalogBuilder(ctx, s.config.APIKey)
	if err != nil {
		return err
	}
	s.log.Infof("Building catalog %s for channel %s", catalogPath, channel)
	count, err := builder.Build(ctx, channel, catalogPath)
	if err != nil {
		if count > 0 {
			s.log.Warnf("Catalog %s is incomplete (%d entries written)", catalogPath, count)
		}
		return fmt.Errorf("failed to build catalog: %w", err)
	}
	s.log.Infof("Catalog %s written with %d entries", catalogPath, count)
	return nil
}

// convert runs the converter and turns any failed conversion into an error, still returning the full report.
func (s *Session) convert(ctx context.Context, inputDir string, outputDir string) (*transcode.Report, error) {
	report, err := s.converter.Convert(ctx, transcode.Job{
		InputDir:  inputDir,
		OutputDir: outputDir,
		SourceExt: s.config.SourceExt,
		TargetExt: s.config.TargetExt,
	})
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		return report, fmt.Errorf("%d of %d conversions failed: %w", len(report.Failed()), len(report.Results), err)
	}
	s.log.Infof("All %s files in %s have been converted to %s in %s", s.config.SourceExt, inputDir, s.config.TargetExt, outputDir)
	return report, nil
}
