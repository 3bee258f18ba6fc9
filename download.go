package youtube_to_go

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Download interface {
	// AddDownloadedBytes increases how many bytes have been successfully downloaded so far.
	AddDownloadedBytes(n int64)

	// AddExpectedBytes increases how many bytes are expected to be downloaded.
	AddExpectedBytes(n int64)

	// Context is the cancellable context of this Download.
	Context() context.Context

	// Progress returns the downloaded and expected bytes of the download.
	Progress() (int64, int64)

	// SaveHTTPRequest will execute the http.Request with Context() and then download the resulting stream like SaveStream.
	SaveHTTPRequest(filename string, req *http.Request) error

	// SaveStream will download the stream to the named file, calling AddDownloadedBytes as necessary. The data is
	// written to a temporary file in the same directory, which is only renamed to filename once the whole stream has
	// been saved.
	SaveStream(filename string, stream io.Reader) error

	// SaveURL will make a GET request to the URL and then download the resulting stream like SaveStream.
	SaveURL(filename string, url string) error

	// Saved returns the paths of files completed by SaveStream, in order.
	Saved() []string

	// Write will ignore the data but will send the byte count to AddDownloadedBytes. Allows progress tracking using
	// io.MultiWriter (but ensure the Download is the last writer to avoid counting failed writes).
	Write(p []byte) (n int, err error)
}

type download struct {
	ctx              context.Context
	client           *http.Client
	progressCallback func(int64, int64)
	targetDir        string
	expectedBytes    int64
	downloadedBytes  int64
	saved            []string
}

func (d *download) AddDownloadedBytes(n int64) {
	d.downloadedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) AddExpectedBytes(n int64) {
	if n <= 0 {
		return
	}
	d.expectedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) Context() context.Context {
	return d.ctx
}

func (d *download) Progress() (int64, int64) {
	return d.downloadedBytes, d.expectedBytes
}

func (d *download) SaveHTTPRequest(filename string, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	req = req.WithContext(d.Context())
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download failed: unexpected status %s", resp.Status)
	}
	d.AddExpectedBytes(resp.ContentLength)
	return d.SaveStream(filename, resp.Body)
}

func (d *download) SaveStream(filename string, stream io.Reader) (err error) {
	if filename == "" || filename != filepath.Base(filename) {
		return fmt.Errorf("invalid target filename %q", filename)
	}
	if err := os.MkdirAll(d.targetDir, 0755); err != nil {
		return fmt.Errorf("failed to create target dir: %w", err)
	}
	targetPath := filepath.Join(d.targetDir, filename)
	tempPath := filepath.Join(d.targetDir, fmt.Sprintf(".%s.%s.part", filename, uuid.NewString()))

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to open target file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if _, err = io.Copy(io.MultiWriter(f, d), &readerContext{ctx: d.ctx, r: stream}); err != nil {
		return fmt.Errorf("failed to save stream: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close target file: %w", err)
	}
	if err = os.Rename(tempPath, targetPath); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	d.saved = append(d.saved, targetPath)
	return nil
}

func (d *download) SaveURL(filename string, url string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return d.SaveHTTPRequest(filename, req)
}

func (d *download) Saved() []string {
	return append([]string(nil), d.saved...)
}

func (d *download) Write(p []byte) (n int, err error) {
	n = len(p)
	d.AddDownloadedBytes(int64(n))
	return n, nil
}

type DownloadBuilder interface {
	Build() (Download, error)
	WithContext(ctx context.Context) DownloadBuilder
	WithHTTPClient(client *http.Client) DownloadBuilder
	WithProgressCallback(f func(downloaded int64, expected int64)) DownloadBuilder
	WithTargetDir(dir string) DownloadBuilder
}

type downloadBuilder struct {
	ctx              context.Context
	client           *http.Client
	progressCallback func(int64, int64)
	targetDir        string
}

func NewDownloadBuilder() DownloadBuilder {
	return &downloadBuilder{
		ctx:       context.Background(),
		client:    http.DefaultClient,
		targetDir: ".",
	}
}

func (b *downloadBuilder) Build() (Download, error) {
	if b.targetDir == "" {
		return nil, fmt.Errorf("no target dir")
	}
	return &download{
		ctx:              b.ctx,
		client:           b.client,
		progressCallback: b.progressCallback,
		targetDir:        b.targetDir,
	}, nil
}

func (b *downloadBuilder) WithContext(ctx context.Context) DownloadBuilder {
	b.ctx = ctx
	return b
}

func (b *downloadBuilder) WithHTTPClient(client *http.Client) DownloadBuilder {
	b.client = client
	return b
}

func (b *downloadBuilder) WithProgressCallback(f func(int64, int64)) DownloadBuilder {
	b.progressCallback = f
	return b
}

func (b *downloadBuilder) WithTargetDir(dir string) DownloadBuilder {
	b.targetDir = dir
	return b
}
