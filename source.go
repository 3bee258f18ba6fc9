package youtube_to_go

import (
	"context"
)

type Source interface {
	// URL should return the canonical URL for this source. It is assumed that the Provider.Match that created the
	// Source would successfully match this canonical URL.
	URL() string
	// ID is a stable identifier for the source that can be determined without any network I/O, used to derive
	// default output locations.
	ID() string
	// Recon should fetch enough information to pick a stream and name the local file.
	Recon(context.Context) (ResolvedSource, error)
}

type ResolvedSource interface {
	// Filename is the default name of the downloaded file, without any directory.
	Filename() string
	// Download should fetch the actual video, saving it as Filename() through the Download.
	Download(Download) error
}
