// Package web embeds the HTML templates and static assets of the directory page.
package web

import "embed"

// TemplatesFS embeds all HTML templates from the templates directory.
//
//go:embed templates
var TemplatesFS embed.FS

// StaticFS embeds the CSS and JavaScript served under /static.
//
//go:embed static
var StaticFS embed.FS
