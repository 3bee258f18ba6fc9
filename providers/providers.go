// Package providers registers every built-in provider with youtube_to_go.DefaultProviderRegistry when imported.
package providers

import (
	_ "github.com/alanbriolat/youtube-to-go/providers/raw"
	_ "github.com/alanbriolat/youtube-to-go/providers/youtube"
)
