// Package web holds the server-rendered templates and static assets.
package web

import "embed"

// Templates holds layouts, partials and pages, parsed once at startup.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static is served under /static/.
//
//go:embed static/css
var Static embed.FS
