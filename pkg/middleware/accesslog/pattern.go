package accesslog

import (
	"strconv"
	"strings"
	"time"
)

// Entry holds the per-request fields available to pattern tokens.
type Entry struct {
	RemoteHost string
	User       string
	Time       time.Time
	Method     string
	URI        string
	Protocol   string
	Status     int
	Bytes      int
}

// CommonPattern is the Common Log Format, selected by the named pattern
// "common" or an empty pattern.
const CommonPattern = "%h %l %u %t \"%r\" %s %b"

type token func(b *strings.Builder, e Entry)

// parsePattern compiles a pattern into token appenders. Supported tokens:
// %h remote host, %l identity (always "-"), %u remote user, %t request time,
// %r request line, %s status, %b response bytes ("-" when zero), %% literal.
// Unknown tokens are kept literally.
func parsePattern(pattern string) []token {
	if name := strings.ToLower(strings.TrimSpace(pattern)); name == "" || name == "common" {
		pattern = CommonPattern
	}

	var tokens []token
	var literal strings.Builder

	flushLiteral := func() {
		if literal.Len() == 0 {
			return
		}
		text := literal.String()
		literal.Reset()
		tokens = append(tokens, func(b *strings.Builder, _ Entry) {
			b.WriteString(text)
		})
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' || i+1 >= len(runes) {
			literal.WriteRune(runes[i])
			continue
		}
		i++
		appender := tokenFor(runes[i])
		if appender == nil {
			literal.WriteRune('%')
			literal.WriteRune(runes[i])
			continue
		}
		flushLiteral()
		tokens = append(tokens, appender)
	}
	flushLiteral()

	return tokens
}

func tokenFor(directive rune) token {
	switch directive {
	case 'h':
		return func(b *strings.Builder, e Entry) { b.WriteString(orDash(e.RemoteHost)) }
	case 'l':
		return func(b *strings.Builder, _ Entry) { b.WriteByte('-') }
	case 'u':
		return func(b *strings.Builder, e Entry) { b.WriteString(orDash(e.User)) }
	case 't':
		return func(b *strings.Builder, e Entry) {
			b.WriteByte('[')
			b.WriteString(e.Time.Format("02/Jan/2006:15:04:05 -0700"))
			b.WriteByte(']')
		}
	case 'r':
		return func(b *strings.Builder, e Entry) {
			b.WriteString(e.Method)
			b.WriteByte(' ')
			b.WriteString(e.URI)
			b.WriteByte(' ')
			b.WriteString(e.Protocol)
		}
	case 's':
		return func(b *strings.Builder, e Entry) { b.WriteString(strconv.Itoa(e.Status)) }
	case 'b':
		return func(b *strings.Builder, e Entry) {
			if e.Bytes <= 0 {
				b.WriteByte('-')
				return
			}
			b.WriteString(strconv.Itoa(e.Bytes))
		}
	case '%':
		return func(b *strings.Builder, _ Entry) { b.WriteByte('%') }
	}
	return nil
}

func formatEntry(tokens []token, e Entry) string {
	var b strings.Builder
	for _, appendToken := range tokens {
		appendToken(&b, e)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
