package markup

import "strings"

type tokenKind int

const (
	tokText tokenKind = iota
	tokBreak
	tokHeading
	tokCode
	tokBegin
	tokEnd
	tokItem
)

type token struct {
	kind  tokenKind
	text  string
	lang  string
	level int
}

var headingLevels = map[string]int{
	"section":       1,
	"subsection":    2,
	"subsubsection": 3,
}

var codeEnvironments = map[string]bool{
	"lstlisting": true,
	"verbatim":   true,
	"minted":     true,
}

// tokenize splits the source into block-level tokens. Inline commands stay
// inside text tokens.
func tokenize(src string) []token {
	var (
		toks []token
		text strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			toks = append(toks, token{kind: tokText, text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(src); {
		ch := src[i]
		switch ch {
		case '\n':
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
				j++
			}
			if j < len(src) && src[j] == '\n' {
				flush()
				toks = append(toks, token{kind: tokBreak})
				for j < len(src) && isSpace(src[j]) {
					j++
				}
				i = j
				continue
			}
			text.WriteByte('\n')
			i++
			continue
		case '\\':
			if tok, n, ok := blockCommand(src[i:]); ok {
				flush()
				toks = append(toks, tok)
				i += n
				continue
			}
			if i+1 < len(src) {
				// Keep escape pairs together so \\section stays text.
				text.WriteString(src[i : i+2])
				i += 2
				continue
			}
		}
		text.WriteByte(ch)
		i++
	}
	flush()
	return toks
}

// blockCommand recognises a block-level command at the start of s and reports
// how many bytes it consumed.
func blockCommand(s string) (token, int, bool) {
	name, n := commandName(s)
	if name == "" {
		return token{}, 0, false
	}

	if level, ok := headingLevels[name]; ok {
		start := skipOptional(s, skipBlanks(s, n))
		if start >= len(s) || s[start] != '{' {
			return token{}, 0, false
		}
		arg, end, ok := matchBrace(s, start)
		if !ok {
			return token{}, 0, false
		}
		return token{kind: tokHeading, text: arg, level: level}, end, true
	}

	switch name {
	case "item":
		return token{kind: tokItem}, skipOptional(s, n), true
	case "begin", "end":
		if n >= len(s) || s[n] != '{' {
			return token{}, 0, false
		}
		env, end, ok := matchBrace(s, n)
		if !ok {
			return token{}, 0, false
		}
		env = strings.TrimSpace(env)
		if name == "end" {
			return token{kind: tokEnd, text: env}, end, true
		}
		if codeEnvironments[env] {
			return codeBlock(s, env, end), end + codeLength(s[end:], env), true
		}
		return token{kind: tokBegin, text: env}, end, true
	}
	return token{}, 0, false
}

// codeBlock reads the body of a code environment that starts at s[start:].
// A missing \end runs the block to the end of input.
func codeBlock(s, env string, start int) token {
	rest := s[start:]
	lang := ""
	if opts, after, ok := optionalArg(rest); ok {
		lang = languageOption(opts)
		rest = rest[after:]
	}
	if env == "minted" && strings.HasPrefix(rest, "{") {
		if arg, after, ok := matchBrace(rest, 0); ok {
			lang = strings.ToLower(strings.TrimSpace(arg))
			rest = rest[after:]
		}
	}
	closing := `\end{` + env + `}`
	if idx := strings.Index(rest, closing); idx >= 0 {
		rest = rest[:idx]
	}
	return token{kind: tokCode, text: rest, lang: lang}
}

func codeLength(rest, env string) int {
	closing := `\end{` + env + `}`
	if idx := strings.Index(rest, closing); idx >= 0 {
		return idx + len(closing)
	}
	return len(rest)
}

func languageOption(opts string) string {
	for _, part := range strings.Split(opts, ",") {
		key, value, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(strings.TrimSpace(key), "language") {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}

// commandName returns the letters following a backslash at s[0], including a
// trailing star, and the byte length consumed.
func commandName(s string) (string, int) {
	if len(s) < 2 || s[0] != '\\' {
		return "", 0
	}
	i := 1
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 1 {
		return "", 0
	}
	name := s[1:i]
	if i < len(s) && s[i] == '*' {
		i++
	}
	return name, i
}

// matchBrace returns the content of the brace group opening at s[open] and
// the index just past its closing brace.
func matchBrace(s string, open int) (string, int, bool) {
	if open >= len(s) || s[open] != '{' {
		return "", 0, false
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open+1 : i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// optionalArg reads a [..] group at the start of s.
func optionalArg(s string) (string, int, bool) {
	if !strings.HasPrefix(s, "[") {
		return "", 0, false
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", 0, false
	}
	return s[1:end], end + 1, true
}

func skipOptional(s string, i int) int {
	if _, n, ok := optionalArg(s[i:]); ok {
		return i + n
	}
	return i
}

func skipBlanks(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
