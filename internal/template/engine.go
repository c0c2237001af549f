// Package template defines the contract the renderer has with the
// template engine, plus the default engine built on html/template with
// goldmark markdown conversion for page bodies.
package template

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"os"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Engine renders a template identity against merged page data. The core
// pipeline does not know the template syntax, only this contract.
type Engine interface {
	Render(templatePath string, data map[string]any) (string, error)
}

// HTMLEngine is the default engine: html/template layouts with the page
// body available as pre-rendered HTML under the "content" key.
type HTMLEngine struct {
	mu    sync.Mutex
	cache map[string]*htmltemplate.Template
	funcs htmltemplate.FuncMap
}

// NewHTMLEngine creates an engine with the given helper functions
// available to every template.
func NewHTMLEngine(funcs htmltemplate.FuncMap) *HTMLEngine {
	return &HTMLEngine{
		cache: make(map[string]*htmltemplate.Template),
		funcs: funcs,
	}
}

// Render parses (and caches) the template file, then executes it.
func (e *HTMLEngine) Render(templatePath string, data map[string]any) (string, error) {
	tmpl, err := e.lookup(templatePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", templatePath, err)
	}
	return buf.String(), nil
}

func (e *HTMLEngine) lookup(templatePath string) (*htmltemplate.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.cache[templatePath]; ok {
		return tmpl, nil
	}

	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", templatePath, err)
	}

	tmpl, err := htmltemplate.New(templatePath).Funcs(e.funcs).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", templatePath, err)
	}
	e.cache[templatePath] = tmpl
	return tmpl, nil
}

// Invalidate drops a cached template, used by the dev watch loop when a
// layout changes on disk.
func (e *HTMLEngine) Invalidate(templatePath string) {
	e.mu.Lock()
	delete(e.cache, templatePath)
	e.mu.Unlock()
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown converts a markdown page body to HTML.
func Markdown(body []byte) (htmltemplate.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	// #nosec G203 -- page bodies are site-author content
	return htmltemplate.HTML(buf.String()), nil
}
