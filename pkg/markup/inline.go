package markup

import (
	"html"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var inlineElements = map[string]atom.Atom{
	"textbf": atom.Strong,
	"textit": atom.Em,
	"emph":   atom.Em,
}

// parseInline renders running text with its inline commands.
func parseInline(s string) []*nethtml.Node {
	var (
		nodes []*nethtml.Node
		text  strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, textNode(collapseSpace(html.UnescapeString(text.String()))))
			text.Reset()
		}
	}

	for i := 0; i < len(s); {
		if s[i] != '\\' || i+1 >= len(s) {
			text.WriteByte(s[i])
			i++
			continue
		}

		next := s[i+1]
		if next == '\\' {
			flush()
			nodes = append(nodes, element(atom.Br))
			i += 2
			continue
		}
		if strings.IndexByte(`{}_&%#$`, next) >= 0 {
			text.WriteByte(next)
			i += 2
			continue
		}

		name, n := commandName(s[i:])
		if name == "" {
			text.WriteByte('\\')
			i++
			continue
		}
		j := i + n
		if j < len(s) && s[j] == '{' {
			if arg, end, ok := matchBrace(s, j); ok {
				flush()
				nodes = append(nodes, inlineCommand(name, arg)...)
				i = end
				continue
			}
		}
		text.WriteString(s[i:j])
		i = j
	}
	flush()
	return nodes
}

func inlineCommand(name, arg string) []*nethtml.Node {
	if name == "texttt" {
		code := element(atom.Code)
		code.AppendChild(textNode(UnescapeCode(arg)))
		return []*nethtml.Node{code}
	}
	a, ok := inlineElements[name]
	if !ok {
		// Unknown commands keep their argument as text.
		return parseInline(arg)
	}
	el := element(a)
	for _, child := range parseInline(arg) {
		el.AppendChild(child)
	}
	return []*nethtml.Node{el}
}

// collapseSpace folds each whitespace run into one space, keeping a single
// space at either end when the input had one.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteByte(s[i])
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}
