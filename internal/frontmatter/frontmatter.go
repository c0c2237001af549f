// Package frontmatter separates per-file configuration blocks from page
// bodies. Markdown pages delimit front matter with +++ lines, HTML pages
// with a leading comment.
package frontmatter

import (
	"bytes"
	"errors"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates a document that opened a front
// matter block but never terminated it.
var ErrMissingClosingDelimiter = errors.New("front matter start delimiter found but closing delimiter is missing")

// Delimiters describes the open/close markers of a front matter block.
type Delimiters struct {
	Open  string
	Close string
}

// Markdown front matter is fenced by +++ lines.
var Markdown = Delimiters{Open: "+++", Close: "+++"}

// HTML front matter lives in a leading comment.
var HTML = Delimiters{Open: "<!--", Close: "-->"}

// ForPath picks delimiters from a file extension.
func ForPath(p string) Delimiters {
	switch strings.ToLower(path.Ext(p)) {
	case ".htm", ".html":
		return HTML
	default:
		return Markdown
	}
}

// Document is the result of splitting a source file.
type Document struct {
	FrontMatter []byte
	Body        []byte
	Has         bool
}

// Split separates a front matter block from the page body.
//
// If the document does not start with the open delimiter, Has is false
// and Body is the full input. An opened but unterminated block is an
// error; callers must surface it with the offending file attached.
func Split(content []byte, d Delimiters) (Document, error) {
	nl := detectNewline(content)

	open := []byte(d.Open + nl)
	if !bytes.HasPrefix(content, open) {
		return Document{Body: content}, nil
	}

	start := len(open)
	closeLine := []byte(d.Close + nl)
	if bytes.HasPrefix(content[start:], closeLine) {
		return Document{FrontMatter: []byte{}, Body: content[start+len(closeLine):], Has: true}, nil
	}

	closeSeq := []byte(nl + d.Close)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		return Document{}, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	bodyStart := start + idx + len(closeSeq)
	// Swallow the newline following the close marker when present.
	if bytes.HasPrefix(content[bodyStart:], []byte(nl)) {
		bodyStart += len(nl)
	}
	return Document{FrontMatter: content[start:end], Body: content[bodyStart:], Has: true}, nil
}

// ParseYAML parses a raw front matter block (without delimiters) into a map.
func ParseYAML(frontMatter []byte) (map[string]any, error) {
	if len(frontMatter) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontMatter, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectNewline(content []byte) string {
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			return "\r\n"
		}
		if content[i] == '\n' {
			break
		}
	}
	return "\n"
}
