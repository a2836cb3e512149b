package emitter

import "strings"

// clauses that start a new line, longest first so "insert into" wins over
// "into" style prefixes.
var clauses = [][]string{
	{"insert", "or", "replace", "into"},
	{"insert", "or", "ignore", "into"},
	{"insert", "into"},
	{"delete", "from"},
	{"create", "table"},
	{"alter", "table"},
	{"group", "by"},
	{"order", "by"},
	{"on", "conflict"},
	{"left", "join"},
	{"inner", "join"},
	{"union", "all"},
	{"select"},
	{"from"},
	{"where"},
	{"values"},
	{"update"},
	{"set"},
	{"limit"},
	{"offset"},
	{"having"},
	{"join"},
	{"union"},
	{"returning"},
}

type sqlToken struct {
	text  string
	space bool // preceded by whitespace in the source
	word  bool
}

// FormatSQL lays out a statement one clause per line with the clause body
// indented, breaking top-level comma lists. Quoted text and parenthesised
// groups are kept as written.
func FormatSQL(stmt string) string {
	toks := tokenizeSQL(stmt)

	var b strings.Builder
	depth := 0
	lineStart := true
	for i := 0; i < len(toks); {
		t := toks[i]
		if depth == 0 && t.word {
			if n := matchClause(toks, i); n > 0 {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				for j := 0; j < n; j++ {
					if j > 0 {
						b.WriteByte(' ')
					}
					b.WriteString(toks[i+j].text)
				}
				b.WriteString("\n  ")
				lineStart = true
				i += n
				continue
			}
		}

		switch t.text {
		case "(":
			depth++
		case ")":
			if depth > 0 {
				depth--
			}
		case ",":
			if depth == 0 {
				b.WriteString(",\n  ")
				lineStart = true
				i++
				continue
			}
		case ";":
			if depth == 0 {
				b.WriteString(";\n")
				lineStart = true
				i++
				continue
			}
		}

		if !lineStart && t.space {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
		lineStart = false
		i++
	}

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

func matchClause(toks []sqlToken, i int) int {
	for _, clause := range clauses {
		if i+len(clause) > len(toks) {
			continue
		}
		ok := true
		for j, kw := range clause {
			if !toks[i+j].word || !strings.EqualFold(toks[i+j].text, kw) {
				ok = false
				break
			}
		}
		if ok {
			return len(clause)
		}
	}
	return 0
}

func tokenizeSQL(s string) []sqlToken {
	var toks []sqlToken
	space := false
	for i := 0; i < len(s); {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			space = true
			i++
			continue
		}

		start := i
		word := false
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = scanQuoted(s, i, c)
		case c == '[':
			if end := strings.IndexByte(s[i:], ']'); end >= 0 {
				i += end + 1
			} else {
				i = len(s)
			}
		case isWordByte(c):
			for i < len(s) && isWordByte(s[i]) {
				i++
			}
			word = true
		case i+1 < len(s) && isOperatorPair(s[i:i+2]):
			i += 2
		default:
			i++
		}

		toks = append(toks, sqlToken{text: s[start:i], space: space, word: word})
		space = false
	}
	return toks
}

// scanQuoted returns the index after the closing quote. A doubled quote is
// an escaped quote.
func scanQuoted(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c >= 0x80
}

func isOperatorPair(p string) bool {
	switch p {
	case "<=", ">=", "!=", "<>", "==", "||", "<<", ">>":
		return true
	}
	return false
}

// Truncate cuts s to n runes and marks the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
