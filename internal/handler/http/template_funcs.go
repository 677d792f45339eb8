package httphandler

import (
	"html/template"
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

// TemplateFuncs returns the custom template functions for HTML templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate":   truncate,
		"pluralize":  pluralize,
		"websiteURL": websiteURL,
		"add":        add,
		"sub":        sub,
	}
}

// truncate shortens s to n runes, ending with "..." when cut.
// Arguments are (n int, s string) to work with template pipes: {{.Name | truncate 30}}
func truncate(n int, s string) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= len(ellipsis) {
		return string(runes[:n])
	}
	return string(runes[:n-len(ellipsis)]) + ellipsis
}

func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// websiteURL turns a bare upstream host like "hildegard.org" into a link.
func websiteURL(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return ""
	}
	if strings.HasPrefix(site, "http://") || strings.HasPrefix(site, "https://") {
		return site
	}
	return "http://" + site
}

func add(a, b int) int {
	return a + b
}

func sub(a, b int) int {
	return a - b
}
