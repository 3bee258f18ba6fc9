package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/alanbriolat/youtube-to-go/generic"
	"github.com/alanbriolat/youtube-to-go/internal/catalog"
)

// FetchCatalog fetches every video listed in the catalog at catalogPath into dir, running at most
// Config.Concurrency fetches at once. It only returns once every fetch has finished. Repeated URLs are fetched once.
//
// A failed fetch does not stop the others. If any failed, the error combines all of their errors; results for failed
// fetches are nil.
func (s *Session) FetchCatalog(ctx context.Context, catalogPath string, dir string) ([]*FetchResult, error) {
	entries, err := catalog.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	seen := generic.NewSet[string]()
	urls := make([]string, 0, len(entries))
	for _, entry := range entries {
		if seen.Add(entry.URL) {
			urls = append(urls, entry.URL)
		} else {
			s.log.Debugf("Ignoring repeated catalog entry %s", entry.URL)
		}
	}
	s.log.Infof("Fetching %d videos from %s into %s", len(urls), catalogPath, dir)

	results := make([]*FetchResult, len(urls))
	var mu sync.Mutex
	var errs *multierror.Error

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			result, err := s.Fetch(ctx, url, dir)
			results[i] = result
			if err != nil {
				s.log.Errorf("%v", err)
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
			if s.config.OnFetch != nil {
				s.config.OnFetch(url, result, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errs.ErrorOrNil()
}
