// Package web holds the embedded browser viewer for progressive renders.
// The display server serves it at the root path; the page connects back
// over the websocket and draws tiles as they arrive.
package web

import "embed"

// Static contains the viewer assets.
//
//go:embed static
var Static embed.FS
