// Package markup extracts checkable plain text from HTML and maps offsets
// in that text back to the markup.
package markup

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Text is the plain text of a markup document.
type Text struct {
	Plain string
	// plain byte i was produced by markup bytes starts[i]..ends[i]
	starts, ends []int
	size         int
}

// MapOffset translates a byte offset in Plain to the markup document.
// Offsets outside Plain are clamped; len(Plain) maps to the end of the
// markup.
func (t Text) MapOffset(plain int) int {
	if plain >= len(t.starts) {
		return t.size
	}
	return t.starts[max(plain, 0)]
}

// MapSpan translates the plain span start..end. A non-empty span ends
// right after the markup of its last character, so a trailing entity is
// kept whole and following tags are excluded.
func (t Text) MapSpan(start, end int) (int, int) {
	from := t.MapOffset(start)
	if end <= start || end > len(t.ends) {
		return from, max(from, t.MapOffset(end))
	}
	return from, t.ends[end-1]
}

// blocks end a paragraph; their text is separated by a blank line so the
// sentence splitter never joins them.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Table: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
}

// hidden elements contribute no text.
var hidden = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Title: true, atom.Template: true, atom.Noscript: true,
}

type builder struct {
	plain        strings.Builder
	starts, ends []int
}

// write appends s, produced by the markup at..end.
func (b *builder) write(s string, at, end int) {
	b.plain.WriteString(s)
	for range len(s) {
		b.starts = append(b.starts, at)
		b.ends = append(b.ends, end)
	}
}

// writeRaw appends the unescaped form of raw, which starts at markup
// offset at. Characters of an entity all map to its '&'.
func (b *builder) writeRaw(raw string, at int) {
	for i := 0; i < len(raw); {
		if raw[i] == '&' {
			if end := strings.IndexByte(raw[i:], ';'); end > 0 && end <= 32 {
				ent := raw[i : i+end+1]
				if dec := html.UnescapeString(ent); dec != ent {
					b.write(dec, at+i, at+i+end+1)
					i += end + 1
					continue
				}
			}
		}
		b.write(raw[i:i+1], at+i, at+i+1)
		i++
	}
}

// breakLine ends the current paragraph unless the text already ends with
// a blank line.
func (b *builder) breakLine(n, at int) {
	s := b.plain.String()
	if s == "" {
		return
	}
	have := len(s) - len(strings.TrimRight(s, "\n"))
	if have < n {
		b.write(strings.Repeat("\n", n-have), at, at)
	}
}

// Extract returns the text content of an HTML document. Block elements
// become paragraph breaks, <br> a line break; script and style contents
// are dropped.
func Extract(r io.Reader) (Text, error) {
	z := html.NewTokenizer(r)
	var b builder
	offset := 0
	skip := 0

	for {
		tt := z.Next()
		raw := string(z.Raw())
		at := offset
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return Text{}, err
			}
			text := strings.TrimRight(b.plain.String(), "\n")
			return Text{Plain: text, starts: b.starts[:len(text)], ends: b.ends[:len(text)], size: offset}, nil

		case html.TextToken:
			if skip == 0 {
				b.writeRaw(raw, at)
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case hidden[a]:
				if tt == html.StartTagToken {
					skip++
				}
			case a == atom.Br:
				if skip == 0 {
					b.write("\n", at, offset)
				}
			case blocks[a]:
				if skip == 0 {
					b.breakLine(2, at)
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case hidden[a]:
				if skip > 0 {
					skip--
				}
			case blocks[a]:
				if skip == 0 {
					b.breakLine(2, at)
				}
			}
		}
	}
}

// ExtractString is Extract over a string.
func ExtractString(s string) (Text, error) {
	return Extract(strings.NewReader(s))
}
