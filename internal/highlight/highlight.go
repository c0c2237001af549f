// Package highlight wraps the chroma highlighter behind the small
// contract the rewrite pipeline consumes: code text plus a language hint
// in, highlighted markup out.
package highlight

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter turns code-block text into highlighted markup. A nil or
// no-op implementation leaves blocks untouched.
type Highlighter interface {
	Highlight(code, language string) (string, error)
}

// aliases maps common fence language hints onto chroma lexer names.
var aliases = map[string]string{
	"golang":     "go",
	"js":         "javascript",
	"jsx":        "javascript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"py":         "python",
	"rb":         "ruby",
	"rs":         "rust",
	"sh":         "bash",
	"shell":      "bash",
	"zsh":        "bash",
	"yml":        "yaml",
	"md":         "markdown",
	"dockerfile": "docker",
}

// Alias resolves a fence language hint to a lexer name.
func Alias(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if mapped, ok := aliases[language]; ok {
		return mapped
	}
	return language
}

// Chroma highlights code with inline styles from a named theme.
type Chroma struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// New creates a highlighter. An unknown or empty theme falls back to
// the chroma default.
func New(theme string) *Chroma {
	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}
	return &Chroma{
		style:     style,
		formatter: chromahtml.New(chromahtml.PreventSurroundingPre(true)),
	}
}

// Highlight renders one code block. Unknown languages use the plain
// text lexer rather than failing the build.
func (c *Chroma) Highlight(code, language string) (string, error) {
	lexer := lexers.Get(Alias(language))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise %s code block: %w", language, err)
	}

	var buf bytes.Buffer
	if err := c.formatter.Format(&buf, c.style, iterator); err != nil {
		return "", fmt.Errorf("format %s code block: %w", language, err)
	}
	return buf.String(), nil
}

// Noop leaves code blocks untouched, used when highlighting is not
// configured.
type Noop struct{}

func (Noop) Highlight(code, _ string) (string, error) { return code, nil }
