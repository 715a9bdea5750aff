package web

import "embed"

// TemplatesFS embeds the HTML templates used for exported documents.
//
//go:embed templates/*.html
var TemplatesFS embed.FS
