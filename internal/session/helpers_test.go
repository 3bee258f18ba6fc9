package session

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"text/template"
	"time"

	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/youtube-to-go"
	"github.com/alanbriolat/youtube-to-go/internal/catalog"
)

// fakeProvider matches https://example.com/watch?v=<id> and "downloads" a few bytes, counting everything it does.
type fakeProvider struct {
	recons    atomic.Int64
	downloads atomic.Int64
	active    atomic.Int64
	maxActive atomic.Int64
	delay     time.Duration
	fail      map[string]bool
	titles    map[string]string
	// If set, downloads write one byte then block until cancelled, closing stalled once they do.
	stalled chan struct{}
}

func (p *fakeProvider) Match(s string) (youtube_to_go.Source, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if u.Host != "example.com" || u.Path != "/watch" || u.Query().Get("v") == "" {
		return nil, fmt.Errorf("not an example.com video")
	}
	return &fakeSource{provider: p, id: u.Query().Get("v"), url: s}, nil
}

type fakeSource struct {
	provider *fakeProvider
	id       string
	url      string
}

func (s *fakeSource) URL() string { return s.url }
func (s *fakeSource) ID() string  { return s.id }

func (s *fakeSource) Recon(ctx context.Context) (youtube_to_go.ResolvedSource, error) {
	s.provider.recons.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &fakeResolved{fakeSource: s}, nil
}

type fakeResolved struct {
	*fakeSource
}

func (s *fakeResolved) Filename() string {
	if title, ok := s.provider.titles[s.id]; ok {
		return title + ".mp4"
	}
	return "Video " + s.id + ".mp4"
}

func (s *fakeResolved) Download(d youtube_to_go.Download) error {
	p := s.provider
	p.downloads.Add(1)
	active := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		prev := p.maxActive.Load()
		if active <= prev || p.maxActive.CompareAndSwap(prev, active) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.fail[s.id] {
		return fmt.Errorf("stream for %s unavailable", s.id)
	}
	if p.stalled != nil {
		return d.SaveStream(s.Filename(), &stallingReader{ctx: d.Context(), stalled: p.stalled})
	}
	return d.SaveStream(s.Filename(), strings.NewReader("media:"+s.id))
}

// stallingReader returns one byte, then blocks until ctx is done and fails a little later.
type stallingReader struct {
	ctx     context.Context
	stalled chan struct{}
	sent    bool
}

func (r *stallingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		p[0] = 'x'
		return 1, nil
	}
	close(r.stalled)
	<-r.ctx.Done()
	time.Sleep(50 * time.Millisecond)
	return 0, r.ctx.Err()
}

// memDatabase is an in-memory fetch index.
type memDatabase struct {
	mu      sync.Mutex
	records map[string]FetchRecord
}

func newMemDatabase() *memDatabase {
	return &memDatabase{records: make(map[string]FetchRecord)}
}

func (d *memDatabase) LookupFetch(url string, dir string) (*FetchRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.records[dir+"\x00"+url]; ok {
		return &r, nil
	}
	return nil, nil
}

func (d *memDatabase) WriteFetch(r *FetchRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[r.Dir+"\x00"+r.URL] = *r
	return nil
}

// fakeBuilder writes a fixed catalog.
type fakeBuilder struct {
	calls   atomic.Int64
	entries []string
}

func (b *fakeBuilder) Build(_ context.Context, _ string, path string) (int, error) {
	b.calls.Add(1)
	return len(b.entries), writeCatalog(path, b.entries...)
}

func testLayout(root string) youtube_to_go.Layout {
	return youtube_to_go.Layout{
		VideoDirTemplate:    template.Must(template.New("video_dir").Parse(filepath.Join(root, "videos-{{.}}"))),
		AudioDirTemplate:    template.Must(template.New("audio_dir").Parse(filepath.Join(root, "audios-{{.}}"))),
		CatalogFileTemplate: template.Must(template.New("catalog_file").Parse(filepath.Join(root, "{{.}}.csv"))),
	}
}

type testEnv struct {
	root     string
	provider *fakeProvider
	builder  *fakeBuilder
	config   Config
}

func newTestEnv(t *testing.T) *testEnv {
	root := t.TempDir()
	env := &testEnv{root: root, provider: &fakeProvider{}, builder: &fakeBuilder{}}
	registry := &youtube_to_go.ProviderRegistry{}
	registry.MustAdd(youtube_to_go.Provider{Name: "fake", Match: env.provider.Match})

	env.config = DefaultConfig
	env.config.Layout = testLayout(root)
	env.config.ProviderRegistry = registry
	env.config.ConvertCommand = "cp {{.Input}} {{.Output}}"
	env.config.NewCatalogBuilder = func(context.Context, string) (CatalogBuilder, error) {
		return env.builder, nil
	}
	return env
}

func (env *testEnv) session(t *testing.T) *Session {
	s, err := New(env.config)
	require_.NoError(t, err)
	return s
}

func videoURL(id string) string {
	return "https://example.com/watch?v=" + id
}

func writeCatalog(path string, urls ...string) error {
	a, err := catalog.OpenAppender(path)
	if err != nil {
		return err
	}
	for i, u := range urls {
		if err := a.Append(catalog.NewEntry(fmt.Sprintf("Video, number %d", i), u)); err != nil {
			return err
		}
	}
	return a.Close()
}
