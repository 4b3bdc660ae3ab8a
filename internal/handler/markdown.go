package handler

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md leaves raw HTML out of the output and drops javascript: style links,
// so model output can be marked safe once rendered.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts generated text to HTML. On failure the text is
// shown escaped.
func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		slog.Warn("markdown render failed", "error", err)
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}
