package notify

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// Renderer writes a message in a channel's markup.
type Renderer interface {
	Render(w io.Writer, m Message) error
}

// Format renders m to a string with the trailing newline removed. An
// empty message renders as "".
func Format(r Renderer, m Message) (string, error) {
	if m.IsEmpty() {
		return "", nil
	}
	var b strings.Builder
	if err := r.Render(&b, m); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// HTMLRenderer produces the HTML subset Telegram accepts.
type HTMLRenderer struct{}

func (HTMLRenderer) Render(w io.Writer, m Message) error {
	for _, b := range m.Blocks {
		var err error
		switch b := b.(type) {
		case Heading:
			_, err = fmt.Fprintf(w, "%s<b>%s</b>\n", iconPrefix(b.Icon), html.EscapeString(b.Text))
		case Entries:
			for i, e := range b.Items {
				if _, err = fmt.Fprintf(w, "%d. <a href='%s'>%s</a>\n",
					i+1, html.EscapeString(e.URL), html.EscapeString(e.Title)); err != nil {
					return err
				}
			}
		case Text:
			_, err = fmt.Fprintf(w, "%s\n", html.EscapeString(b.Text))
		case Note:
			_, err = fmt.Fprintf(w, "%s<i>%s</i>\n", iconPrefix(b.Icon), html.EscapeString(b.Text))
		case Blank:
			_, err = io.WriteString(w, "\n")
		default:
			err = fmt.Errorf("html: unsupported block %T", b)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// MarkdownRenderer produces Discord-flavoured Markdown.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(w io.Writer, m Message) error {
	for _, b := range m.Blocks {
		var err error
		switch b := b.(type) {
		case Heading:
			_, err = fmt.Fprintf(w, "%s**%s**\n", iconPrefix(b.Icon), escapeMarkdown(b.Text))
		case Entries:
			for i, e := range b.Items {
				if _, err = fmt.Fprintf(w, "%d. [%s](%s)\n", i+1, escapeMarkdown(e.Title), markdownURL(e.URL)); err != nil {
					return err
				}
			}
		case Text:
			_, err = fmt.Fprintf(w, "%s\n", escapeMarkdown(b.Text))
		case Note:
			_, err = fmt.Fprintf(w, "%s*%s*\n", iconPrefix(b.Icon), escapeMarkdown(b.Text))
		case Blank:
			_, err = io.WriteString(w, "\n")
		default:
			err = fmt.Errorf("markdown: unsupported block %T", b)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	`~`, `\~`,
	"`", "\\`",
	`[`, `\[`,
	`]`, `\]`,
	`|`, `\|`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Parentheses and spaces would end the link target early.
var markdownURLEscaper = strings.NewReplacer("(", "%28", ")", "%29", " ", "%20")

func markdownURL(u string) string {
	return markdownURLEscaper.Replace(u)
}

func iconPrefix(icon string) string {
	if icon == "" {
		return ""
	}
	return icon + " "
}
