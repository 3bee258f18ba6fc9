package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

func TestDownloadURLVideoOnly(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t)

	summary, err := env.session(t).DownloadURL(context.Background(), videoURL("abc123"))
	require_.NoError(t, err)
	require_.Len(t, summary.Fetched, 1)
	assert.Nil(summary.Conversion)
	assert.FileExists(filepath.Join(env.root, "videos-abc123", "Video abc123.mp4"))
	assert.NoDirExists(filepath.Join(env.root, "audios-abc123"))
}

func TestDownloadURLAudio(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	env := newTestEnv(t)
	env.config.Audio = true

	summary, err := env.session(t).DownloadURL(context.Background(), videoURL("abc123"))
	require.NoError(err)
	require.NotNil(summary.Conversion)
	assert.Len(summary.Conversion.Succeeded(), 1)

	data, err := os.ReadFile(filepath.Join(env.root, "audios-abc123", "Video abc123.mp3"))
	require.NoError(err)
	assert.Equal("media:abc123", string(data))
}

func TestDownloadURLNoMatch(t *testing.T) {
	env := newTestEnv(t)
	summary, err := env.session(t).DownloadURL(context.Background(), "not a url")
	assert_.Error(t, err)
	assert_.Nil(t, summary)
}

func TestDownloadChannelExistingCatalog(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	env := newTestEnv(t)
	env.config.APIKey = "key"
	require.NoError(writeCatalog(filepath.Join(env.root, "chan.csv"), videoURL("a1"), videoURL("b2")))

	summary, err := env.session(t).DownloadChannel(context.Background(), "chan")
	require.NoError(err)
	assert.Equal(int64(0), env.builder.calls.Load(), "existing catalog must not be rebuilt")
	assert.Len(summary.Fetched, 2)
	assert.FileExists(filepath.Join(env.root, "videos-chan", "Video a1.mp4"))
	assert.FileExists(filepath.Join(env.root, "videos-chan", "Video b2.mp4"))
	assert.NoDirExists(filepath.Join(env.root, "audios-chan"))
}

func TestDownloadChannelBuildsCatalog(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	env := newTestEnv(t)
	env.config.APIKey = "key"
	env.config.Audio = true
	env.builder.entries = []string{videoURL("a1"), videoURL("b2"), videoURL("c3")}

	summary, err := env.session(t).DownloadChannel(context.Background(), "chan")
	require.NoError(err)
	assert.Equal(int64(1), env.builder.calls.Load())
	assert.FileExists(filepath.Join(env.root, "chan.csv"))
	assert.Len(summary.Fetched, 3)
	require.NotNil(summary.Conversion)
	assert.Len(summary.Conversion.Succeeded(), 3)
	for _, id := range []string{"a1", "b2", "c3"} {
		assert.FileExists(filepath.Join(env.root, "audios-chan", "Video "+id+".mp3"))
	}

	// A second run reuses the catalog and the downloaded files.
	_, err = env.session(t).DownloadChannel(context.Background(), "chan")
	require.NoError(err)
	assert.Equal(int64(1), env.builder.calls.Load())
	assert.Equal(int64(3), env.provider.downloads.Load())
}

func TestDownloadChannelRebuildCatalog(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	env := newTestEnv(t)
	env.config.APIKey = "key"
	env.config.RebuildCatalog = true
	env.builder.entries = []string{videoURL("new1")}
	require.NoError(writeCatalog(filepath.Join(env.root, "chan.csv"), videoURL("old1")))

	summary, err := env.session(t).DownloadChannel(context.Background(), "chan")
	require.NoError(err)
	assert.Equal(int64(1), env.builder.calls.Load())
	require.Len(summary.Fetched, 1)
	assert.Equal("new1", summary.Fetched[0].ID)
}

func TestDownloadChannelMissingAPIKey(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t)
	require_.NoError(t, writeCatalog(filepath.Join(env.root, "chan.csv"), videoURL("a1")))

	_, err := env.session(t).DownloadChannel(context.Background(), "chan")
	assert.ErrorIs(err, ErrMissingAPIKey)
	assert.Equal(int64(0), env.builder.calls.Load())
	assert.Equal(int64(0), env.provider.recons.Load())
	assert.NoDirExists(filepath.Join(env.root, "videos-chan"))
}

func TestDownloadChannelFetchFailureSkipsConversion(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t)
	env.config.APIKey = "key"
	env.config.Audio = true
	env.provider.fail = map[string]bool{"b2": true}
	require_.NoError(t, writeCatalog(filepath.Join(env.root, "chan.csv"), videoURL("a1"), videoURL("b2")))

	summary, err := env.session(t).DownloadChannel(context.Background(), "chan")
	assert.ErrorContains(err, videoURL("b2"))
	require_.NotNil(t, summary)
	assert.Nil(summary.Conversion)
	assert.FileExists(filepath.Join(env.root, "videos-chan", "Video a1.mp4"))
}

func TestDownloadConversionFailure(t *testing.T) {
	assert := assert_.New(t)
	env := newTestEnv(t)
	env.config.Audio = true
	env.config.ConvertCommand = "false {{.Input}} {{.Output}}"

	summary, err := env.session(t).DownloadURL(context.Background(), videoURL("abc123"))
	assert.ErrorContains(err, "1 of 1 conversions failed")
	require_.NotNil(t, summary)
	require_.NotNil(t, summary.Conversion)
	assert.Len(summary.Conversion.Failed(), 1)
	assert.FileExists(filepath.Join(env.root, "videos-abc123", "Video abc123.mp4"))
}
