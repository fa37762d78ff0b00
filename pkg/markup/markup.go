// Package markup renders the LaTeX-flavoured lesson text produced by the model
// into HTML. The renderer is tolerant: anything it does not understand comes out
// as plain text rather than an error.
package markup

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Render converts lesson markup to an HTML fragment.
func Render(src string) string {
	var buf bytes.Buffer
	for _, n := range Nodes(src) {
		_ = html.Render(&buf, n)
	}
	return buf.String()
}

// Nodes converts lesson markup to a list of top-level HTML nodes.
func Nodes(src string) []*html.Node {
	b := newBuilder()
	for _, tok := range tokenize(stripFence(src)) {
		b.add(tok)
	}
	return b.finish()
}

var codeUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\{`, `{`,
	`\}`, `}`,
	`\_`, `_`,
	`\&`, `&`,
	`\%`, `%`,
	`\#`, `#`,
	`\$`, `$`,
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// UnescapeCode reverses the escaping the model applies inside code blocks.
func UnescapeCode(code string) string {
	return codeUnescaper.Replace(code)
}

// stripFence removes a ``` fence wrapped around the whole text.
func stripFence(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	trimmed := strings.TrimSpace(src)
	if !strings.HasPrefix(trimmed, "```") {
		return src
	}
	nl := strings.IndexByte(trimmed, '\n')
	if nl < 0 {
		return ""
	}
	body := trimmed[nl+1:]
	body = strings.TrimRight(body, " \t\n")
	body = strings.TrimSuffix(body, "```")
	return body
}

type builder struct {
	out   []*html.Node
	lists []*html.Node
	item  *html.Node
	para  strings.Builder
}

func newBuilder() *builder {
	return &builder{}
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// emit appends a block either to the open list item or to the top level.
func (b *builder) emit(n *html.Node) {
	if b.item != nil {
		b.item.AppendChild(n)
		return
	}
	if len(b.lists) > 0 {
		// Block content inside a list before any \item gets its own item.
		b.openItem()
		b.item.AppendChild(n)
		return
	}
	b.out = append(b.out, n)
}

func (b *builder) flushText() {
	text := strings.TrimSpace(b.para.String())
	b.para.Reset()
	if text == "" {
		return
	}
	inline := parseInline(text)
	if len(inline) == 0 {
		return
	}
	if b.item != nil {
		if b.item.LastChild != nil && b.item.LastChild.Type == html.TextNode {
			b.item.AppendChild(textNode(" "))
		}
		for _, n := range inline {
			b.item.AppendChild(n)
		}
		return
	}
	p := element(atom.P)
	for _, n := range inline {
		p.AppendChild(n)
	}
	b.emit(p)
}

func (b *builder) openItem() {
	list := b.lists[len(b.lists)-1]
	b.item = element(atom.Li)
	list.AppendChild(b.item)
}

func (b *builder) add(tok token) {
	switch tok.kind {
	case tokText:
		b.para.WriteString(tok.text)
	case tokBreak:
		if b.item != nil {
			b.para.WriteString(" ")
			return
		}
		b.flushText()
	case tokHeading:
		b.flushText()
		h := element(headingAtoms[tok.level])
		for _, n := range parseInline(strings.TrimSpace(tok.text)) {
			h.AppendChild(n)
		}
		b.item = nil
		b.emit(h)
	case tokCode:
		b.flushText()
		pre := element(atom.Pre)
		var attrs []html.Attribute
		if tok.lang != "" {
			attrs = append(attrs, html.Attribute{Key: "class", Val: "language-" + tok.lang})
		}
		code := element(atom.Code, attrs...)
		code.AppendChild(textNode(UnescapeCode(trimBlankLines(tok.text))))
		pre.AppendChild(code)
		b.emit(pre)
	case tokBegin:
		var list *html.Node
		switch tok.text {
		case "itemize":
			list = element(atom.Ul)
		case "enumerate":
			list = element(atom.Ol)
		default:
			b.para.WriteString(literalDirective("begin", tok.text))
			return
		}
		b.flushText()
		b.emit(list)
		b.lists = append(b.lists, list)
		b.item = nil
	case tokEnd:
		if (tok.text != "itemize" && tok.text != "enumerate") || len(b.lists) == 0 {
			b.para.WriteString(literalDirective("end", tok.text))
			return
		}
		b.flushText()
		closed := b.lists[len(b.lists)-1]
		b.lists = b.lists[:len(b.lists)-1]
		b.item = nil
		if closed.Parent != nil && closed.Parent.DataAtom == atom.Li {
			b.item = closed.Parent
		}
	case tokItem:
		b.flushText()
		if len(b.lists) == 0 {
			b.para.WriteString("• ")
			return
		}
		b.openItem()
	}
}

// literalDirective spells an environment directive so inline parsing keeps it
// as plain text.
func literalDirective(name, env string) string {
	return `\` + name + `\{` + inlineEscaper.Replace(env) + `\}`
}

var inlineEscaper = strings.NewReplacer(
	`\`, ``,
	`{`, `\{`,
	`}`, `\}`,
	`_`, `\_`,
	`&`, `\&`,
	`%`, `\%`,
	`#`, `\#`,
	`$`, `\$`,
)

func (b *builder) finish() []*html.Node {
	b.flushText()
	return b.out
}

// trimBlankLines drops leading and trailing lines that are entirely whitespace
// and leaves every other character untouched.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

var headingAtoms = map[int]atom.Atom{
	1: atom.H2,
	2: atom.H3,
	3: atom.H4,
}
