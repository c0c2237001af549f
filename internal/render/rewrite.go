package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/uwe-app/app-sub001/internal/highlight"
)

// TOCPlaceholder is replaced with the rendered table of contents when
// TOC collection is requested.
const TOCPlaceholder = "[[toc]]"

// RewriteOptions selects the passes applied to a rendered HTML page.
type RewriteOptions struct {
	// AutoID assigns ids to headings, de-duplicating collisions with a
	// numeric suffix. Author-supplied ids are respected.
	AutoID bool
	// TOC collects headings and replaces the placeholder token.
	TOC bool
	// StripComments removes HTML comment nodes.
	StripComments bool
	// Highlighter replaces fenced code block contents; nil skips the pass.
	Highlighter highlight.Highlighter
	// ExtractText requests the plain text of the page for the search
	// index.
	ExtractText bool
}

// Heading is one table-of-contents entry.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// RewriteResult carries the rewritten markup and its extractions.
type RewriteResult struct {
	HTML     string
	Headings []Heading
	Text     string
}

// Rewrite runs the HTML post-processing pipeline: a first pass buffers
// heading and code-block text per element, a second pass reassigns
// heading ids and swaps code blocks for highlighted markup.
func Rewrite(content string, opts RewriteOptions) (*RewriteResult, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	// First pass: buffer per-element text.
	headings := collectHeadings(doc)
	blocks := collectCodeBlocks(doc)

	result := &RewriteResult{}

	// Second pass: mutate the tree.
	if opts.AutoID || opts.TOC {
		seen := make(map[string]int)
		for _, h := range headings {
			id := headingID(h.node)
			if id == "" {
				id = slug(h.text)
			}
			id = dedupe(seen, id)
			// TOC anchors need a target id even when auto ids are off.
			setAttr(h.node, "id", id)
			if opts.TOC {
				result.Headings = append(result.Headings, Heading{
					Level: h.level,
					ID:    id,
					Text:  h.text,
				})
			}
		}
	}

	if opts.Highlighter != nil {
		for _, b := range blocks {
			markup, err := opts.Highlighter.Highlight(b.text, b.language)
			if err != nil {
				return nil, err
			}
			if err := replaceContents(b.node, markup); err != nil {
				return nil, err
			}
		}
	}

	if opts.StripComments {
		stripComments(doc)
	}

	if opts.TOC {
		replaceTOCPlaceholder(doc, result.Headings)
	}

	if opts.ExtractText {
		var sb strings.Builder
		extractText(doc, &sb)
		result.Text = strings.Join(strings.Fields(sb.String()), " ")
	}

	var out strings.Builder
	if err := html.Render(&out, doc); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	result.HTML = out.String()
	return result, nil
}

type headingNode struct {
	node  *html.Node
	level int
	text  string
}

type codeBlock struct {
	node     *html.Node
	language string
	text     string
}

func collectHeadings(doc *html.Node) []headingNode {
	var out []headingNode
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		var level int
		switch n.DataAtom {
		case atom.H1:
			level = 1
		case atom.H2:
			level = 2
		case atom.H3:
			level = 3
		case atom.H4:
			level = 4
		case atom.H5:
			level = 5
		case atom.H6:
			level = 6
		default:
			return
		}
		var sb strings.Builder
		extractText(n, &sb)
		out = append(out, headingNode{node: n, level: level, text: strings.TrimSpace(sb.String())})
	})
	return out
}

// collectCodeBlocks finds <pre><code> elements and their language hint
// from a language-* class.
func collectCodeBlocks(doc *html.Node) []codeBlock {
	var out []codeBlock
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.DataAtom != atom.Code {
			return
		}
		if n.Parent == nil || n.Parent.DataAtom != atom.Pre {
			return
		}
		var sb strings.Builder
		extractText(n, &sb)
		out = append(out, codeBlock{
			node:     n,
			language: languageClass(n),
			text:     sb.String(),
		})
	})
	return out
}

func languageClass(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(a.Val) {
			if lang, ok := strings.CutPrefix(class, "language-"); ok {
				return lang
			}
		}
	}
	return ""
}

func headingID(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "id" {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// dedupe returns id, or id-N for the Nth collision.
func dedupe(seen map[string]int, id string) string {
	count := seen[id]
	seen[id] = count + 1
	if count == 0 {
		return id
	}
	return fmt.Sprintf("%s-%d", id, count)
}

// slug lowercases heading text and maps non-alphanumeric runs to single
// hyphens.
func slug(text string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

// replaceContents swaps a node's children for parsed markup.
func replaceContents(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return fmt.Errorf("parse highlighted markup: %w", err)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, child := range nodes {
		n.AppendChild(child)
	}
	return nil
}

func stripComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			stripComments(c)
		}
		c = next
	}
}

// replaceTOCPlaceholder swaps the placeholder text node for the
// rendered table of contents markup.
func replaceTOCPlaceholder(doc *html.Node, headings []Heading) {
	var target *html.Node
	walk(doc, func(n *html.Node) {
		if target == nil && n.Type == html.TextNode && strings.Contains(n.Data, TOCPlaceholder) {
			target = n
		}
	})
	if target == nil {
		return
	}

	parent := target.Parent
	nodes, err := html.ParseFragment(strings.NewReader(renderTOC(headings)), parent)
	if err != nil {
		return
	}
	for _, node := range nodes {
		parent.InsertBefore(node, target)
	}
	remainder := strings.Replace(target.Data, TOCPlaceholder, "", 1)
	if strings.TrimSpace(remainder) == "" {
		parent.RemoveChild(target)
	} else {
		target.Data = remainder
	}
}

func renderTOC(headings []Heading) string {
	var sb strings.Builder
	sb.WriteString(`<ul class="toc">`)
	for _, h := range headings {
		fmt.Fprintf(&sb, `<li class="toc-h%d"><a href="#%s">%s</a></li>`,
			h.Level, h.ID, html.EscapeString(h.Text))
	}
	sb.WriteString("</ul>")
	return sb.String()
}

// extractText appends the visible text below n, skipping scripts and
// styles.
func extractText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
		if c.Type == html.ElementNode {
			sb.WriteString(" ")
		}
	}
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
