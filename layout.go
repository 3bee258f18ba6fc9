package youtube_to_go

import (
	"fmt"
	"strings"
	"text/template"
)

// Layout decides where things live on disk. Each template is executed with the key (a video ID or a channel
// identifier) as its data.
type Layout struct {
	VideoDirTemplate    *template.Template
	AudioDirTemplate    *template.Template
	CatalogFileTemplate *template.Template
}

func NewLayout() Layout {
	return Layout{
		VideoDirTemplate:    template.Must(template.New("video_dir").Parse("videos-{{.}}")),
		AudioDirTemplate:    template.Must(template.New("audio_dir").Parse("audios-{{.}}")),
		CatalogFileTemplate: template.Must(template.New("catalog_file").Parse("{{.}}.csv")),
	}
}

// VideoDir is where downloaded media for key is saved.
func (l Layout) VideoDir(key string) (string, error) {
	return execute(l.VideoDirTemplate, key)
}

// AudioDir is where transcoded audio for key is saved.
func (l Layout) AudioDir(key string) (string, error) {
	return execute(l.AudioDirTemplate, key)
}

// CatalogFile is the catalog path for a channel.
func (l Layout) CatalogFile(channel string) (string, error) {
	return execute(l.CatalogFileTemplate, channel)
}

func execute(t *template.Template, key string) (string, error) {
	if t == nil {
		return "", fmt.Errorf("layout template not set")
	}
	if key == "" {
		return "", fmt.Errorf("%s: empty key", t.Name())
	}
	builder := strings.Builder{}
	if err := t.Execute(&builder, key); err != nil {
		return "", err
	}
	return builder.String(), nil
}
