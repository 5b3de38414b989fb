// Package rendition provides built-in renderers for producing alternate
// representations of stored content.
package rendition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/attachkit/content-store/pkg/contentstore"
)

// Defaults returns the built-in renderer set: plain-text to HTML, text
// family to plain text, JSON pretty-printing and a raw byte fallback.
func Defaults() []contentstore.Renderer {
	return []contentstore.Renderer{
		NewHTMLRenderer(),
		NewPlainTextRenderer(),
		NewJSONRenderer(),
		NewOctetStreamRenderer(),
	}
}

// HTMLRenderer renders plain text as an HTML document with the content
// escaped inside a pre block
type HTMLRenderer struct{}

// NewHTMLRenderer creates a renderer producing text/html from text/plain
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

func (r *HTMLRenderer) Consumes(mimeType string) bool {
	return mimeType == "text/plain"
}

func (r *HTMLRenderer) Produces() string {
	return "text/html"
}

func (r *HTMLRenderer) Render(ctx context.Context, source io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><body><pre>")
	buf.WriteString(html.EscapeString(string(data)))
	buf.WriteString("</pre></body></html>\n")
	return &buf, nil
}

// PlainTextRenderer renders any text-family content as text/plain by
// passing the bytes through unchanged
type PlainTextRenderer struct{}

// NewPlainTextRenderer creates a renderer producing text/plain from text/*
func NewPlainTextRenderer() *PlainTextRenderer {
	return &PlainTextRenderer{}
}

func (r *PlainTextRenderer) Consumes(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/")
}

func (r *PlainTextRenderer) Produces() string {
	return "text/plain"
}

func (r *PlainTextRenderer) Render(ctx context.Context, source io.Reader) (io.Reader, error) {
	return source, nil
}

// JSONRenderer re-indents JSON content
type JSONRenderer struct{}

// NewJSONRenderer creates a renderer producing pretty-printed
// application/json from application/json
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

func (r *JSONRenderer) Consumes(mimeType string) bool {
	return mimeType == "application/json" || mimeType == "text/json"
}

func (r *JSONRenderer) Produces() string {
	return "application/json"
}

func (r *JSONRenderer) Render(ctx context.Context, source io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("invalid JSON content: %w", err)
	}
	buf.WriteByte('\n')
	return &buf, nil
}

// OctetStreamRenderer renders any content as application/octet-stream,
// a raw byte fallback that always applies
type OctetStreamRenderer struct{}

// NewOctetStreamRenderer creates the raw byte fallback renderer
func NewOctetStreamRenderer() *OctetStreamRenderer {
	return &OctetStreamRenderer{}
}

func (r *OctetStreamRenderer) Consumes(mimeType string) bool {
	return true
}

func (r *OctetStreamRenderer) Produces() string {
	return "application/octet-stream"
}

func (r *OctetStreamRenderer) Render(ctx context.Context, source io.Reader) (io.Reader, error) {
	return source, nil
}
