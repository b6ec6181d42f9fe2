package web

import "embed"

// templatesFS contains the dashboard page templates.
//
//go:embed all:templates
var templatesFS embed.FS

// staticFS contains the stylesheet and other static assets served
// under /static/.
//
//go:embed all:static
var staticFS embed.FS
