package raw

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/youtube-to-go"
)

func TestMatch(t *testing.T) {
	c := NewConfig()
	tests := []struct {
		in       string
		id       string
		filename string
		err      bool
	}{
		{in: "https://cdn.example.com/files/talk.mp4", id: "talk", filename: "talk.mp4"},
		{in: "http://cdn.example.com/a/b/Song.MP3?sig=1", id: "Song", filename: "Song.MP3"},
		{in: "ftp://cdn.example.com/talk.mp4", err: true},
		{in: "https://cdn.example.com/page.html", err: true},
		{in: "https://cdn.example.com/noextension", err: true},
		{in: "https://cdn.example.com/", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			src, err := c.Match(tt.in)
			if tt.err {
				assert_.Error(t, err)
				return
			}
			require_.NoError(t, err)
			assert_.Equal(t, tt.id, src.ID())
			assert_.Equal(t, tt.in, src.URL())
			resolved, err := src.Recon(context.Background())
			require_.NoError(t, err)
			assert_.Equal(t, tt.filename, resolved.Filename())
		})
	}
}

func TestDownload(t *testing.T) {
	require := require_.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "fake video bytes")
	}))
	defer server.Close()

	c := NewConfig()
	src, err := c.Match(server.URL + "/clip.mp4")
	require.NoError(err)
	resolved, err := src.Recon(context.Background())
	require.NoError(err)

	dir := t.TempDir()
	d, err := youtube_to_go.NewDownloadBuilder().WithHTTPClient(server.Client()).WithTargetDir(dir).Build()
	require.NoError(err)
	require.NoError(resolved.Download(d))

	data, err := os.ReadFile(filepath.Join(dir, "clip.mp4"))
	require.NoError(err)
	assert_.Equal(t, "fake video bytes", string(data))
}

func TestDownloadBadStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := NewConfig()
	src, err := c.Match(server.URL + "/clip.mp4")
	require_.NoError(t, err)
	resolved, err := src.Recon(context.Background())
	require_.NoError(t, err)

	dir := t.TempDir()
	d, err := youtube_to_go.NewDownloadBuilder().WithHTTPClient(server.Client()).WithTargetDir(dir).Build()
	require_.NoError(t, err)
	assert_.ErrorContains(t, resolved.Download(d), "404")
	assert_.NoFileExists(t, filepath.Join(dir, "clip.mp4"))
}
