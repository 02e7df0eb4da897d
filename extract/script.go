package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// The landing page assigns the author id and the percent-encoded, quoted
// title in an inline script:
//
//	var userid = 123456;
//	var title = 'Some+Story%21';
var (
	userIDAssignment = regexp.MustCompile(`var userid = (.*?);`)
	titleAssignment  = regexp.MustCompile(`var title = (.*?);`)
)

// scriptVars holds the values read from the inline script assignments.
type scriptVars struct {
	AuthorID int64
	Title    string
}

func parseScriptVars(raw []byte) (scriptVars, error) {
	var vars scriptVars

	m := userIDAssignment.FindSubmatch(raw)
	if m == nil {
		return vars, &FieldError{Field: "author_id", Reason: "userid assignment not found"}
	}
	authorID, err := strconv.ParseInt(strings.TrimSpace(string(m[1])), 10, 64)
	if err != nil {
		return vars, &FieldError{Field: "author_id", Reason: "not an integer: " + strconv.Quote(string(m[1]))}
	}
	vars.AuthorID = authorID

	m = titleAssignment.FindSubmatch(raw)
	if m == nil {
		return vars, &FieldError{Field: "title", Reason: "title assignment not found"}
	}
	title, err := unquoteTitle(string(m[1]))
	if err != nil {
		return vars, err
	}
	vars.Title = title

	return vars, nil
}

// unquoteTitle percent-decodes the assigned value and strips one layer of
// matching quotes. Escapes that are not %XX (JavaScript's %uXXXX, a stray
// %) are kept literally.
func unquoteTitle(value string) (string, error) {
	decoded := unescapeLenient(strings.TrimSpace(value))

	if len(decoded) < 2 {
		return "", &FieldError{Field: "title", Reason: "value is not quoted"}
	}
	first, last := decoded[0], decoded[len(decoded)-1]
	if first != last || (first != '\'' && first != '"') {
		return "", &FieldError{Field: "title", Reason: "value is not quoted"}
	}

	return decoded[1 : len(decoded)-1], nil
}

// unescapeLenient decodes "+" as a space and every valid %XX escape.
// Invalid escapes pass through and invalid UTF-8 becomes U+FFFD.
func unescapeLenient(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}

	return strings.ToValidUTF8(b.String(), "\uFFFD")
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}
