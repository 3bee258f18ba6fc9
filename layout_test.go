package youtube_to_go

import (
	"testing"
	"text/template"

	assert_ "github.com/stretchr/testify/assert"
)

func TestLayoutDefaults(t *testing.T) {
	assert := assert_.New(t)
	l := NewLayout()

	dir, err := l.VideoDir("abc123")
	assert.NoError(err)
	assert.Equal("videos-abc123", dir)

	dir, err = l.AudioDir("abc123")
	assert.NoError(err)
	assert.Equal("audios-abc123", dir)

	path, err := l.CatalogFile("somechannel")
	assert.NoError(err)
	assert.Equal("somechannel.csv", path)

	_, err = l.VideoDir("")
	assert.Error(err)
}

func TestLayoutCustom(t *testing.T) {
	l := NewLayout()
	l.VideoDirTemplate = template.Must(template.New("video_dir").Parse("media/{{.}}/video"))
	dir, err := l.VideoDir("xyz")
	assert_.NoError(t, err)
	assert_.Equal(t, "media/xyz/video", dir)

	_, err = Layout{}.AudioDir("xyz")
	assert_.Error(t, err)
}
