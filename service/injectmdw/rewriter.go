package injectmdw

import (
	"errors"
	"html"
	"io"
	"strings"

	nethtml "golang.org/x/net/html"
)

// Element is the start tag an ElementHandler was matched against
type Element struct {
	tagName string
	prepend []string
	append  []string
}

// TagName returns the lower case name of the element
func (e *Element) TagName() string {
	return e.tagName
}

// Prepend inserts content right after the element's start tag.
// Content is html escaped unless raw is true.
func (e *Element) Prepend(content string, raw bool) {
	e.prepend = append([]string{render(content, raw)}, e.prepend...)
}

// Append inserts content right before the element's end tag.
// Content is html escaped unless raw is true.
func (e *Element) Append(content string, raw bool) {
	e.append = append(e.append, render(content, raw))
}

func render(content string, raw bool) string {
	if raw {
		return content
	}
	return html.EscapeString(content)
}

// ElementHandler mutates a matched element
type ElementHandler func(element *Element)

type elementHandler struct {
	tagName string
	handle  ElementHandler
}

// Rewriter streams an HTML document from a reader to a writer,
// calling registered handlers for the first element matching
// each handler's tag name. Everything else is copied byte for byte.
type Rewriter struct {
	handlers []elementHandler
}

// NewRewriter creates a Rewriter with no handlers
func NewRewriter() *Rewriter {
	return &Rewriter{}
}

// On registers handle to be run on the first element named tagName
func (rw *Rewriter) On(tagName string, handle ElementHandler) *Rewriter {
	rw.handlers = append(rw.handlers, elementHandler{
		tagName: strings.ToLower(tagName),
		handle:  handle,
	})
	return rw
}

// openElement is a matched element waiting for its end tag
type openElement struct {
	tagName string
	// depth counts nested elements of the same name
	depth   int
	content string
}

// implicitlyClosedBy lists start tags that end an unclosed element
var implicitlyClosedBy = map[string]string{
	"head": "body",
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Transform copies src to dst applying the registered handlers.
// Appends for elements whose end tag never arrives are written at EOF,
// ahead of any tag left unfinished by the end of the document.
func (rw *Rewriter) Transform(dst io.Writer, src io.Reader) error {
	tokenizer := nethtml.NewTokenizer(src)
	fired := make([]bool, len(rw.handlers))

	var pending []*openElement

	write := func(s string) error {
		if s == "" {
			return nil
		}
		_, err := io.WriteString(dst, s)
		return err
	}

	// closePending writes and forgets the pending element at index i
	closePending := func(i int) error {
		err := write(pending[i].content)
		pending = append(pending[:i], pending[i+1:]...)
		return err
	}

	for {
		tokenType := tokenizer.Next()

		if tokenType == nethtml.ErrorToken {
			err := tokenizer.Err()
			if !errors.Is(err, io.EOF) {
				return err
			}

			// a tag cut off by the end of the document is kept after the
			// pending appends, browsers discard anything inside it
			trailing := string(tokenizer.Raw())

			for len(pending) > 0 {
				if err := closePending(len(pending) - 1); err != nil {
					return err
				}
			}

			return write(trailing)
		}

		switch tokenType {
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			// TagName lower cases the tokenizer's buffer in place
			raw := clone(tokenizer.Raw())
			name, _ := tokenizer.TagName()
			tagName := string(name)

			for i := len(pending) - 1; i >= 0; i-- {
				if implicitlyClosedBy[pending[i].tagName] == tagName {
					if err := closePending(i); err != nil {
						return err
					}
				}
			}

			if tokenType == nethtml.StartTagToken {
				for _, open := range pending {
					if open.tagName == tagName {
						open.depth++
					}
				}
			}

			element := &Element{tagName: tagName}
			for i, handler := range rw.handlers {
				if fired[i] || handler.tagName != tagName {
					continue
				}
				fired[i] = true
				handler.handle(element)
			}

			if _, err := dst.Write(raw); err != nil {
				return err
			}

			if err := write(strings.Join(element.prepend, "")); err != nil {
				return err
			}

			appended := strings.Join(element.append, "")
			if appended == "" {
				continue
			}

			if tokenType == nethtml.SelfClosingTagToken || voidElements[tagName] {
				if err := write(appended); err != nil {
					return err
				}
				continue
			}

			pending = append(pending, &openElement{tagName: tagName, content: appended})

		case nethtml.EndTagToken:
			raw := clone(tokenizer.Raw())
			name, _ := tokenizer.TagName()
			tagName := string(name)

			for i := len(pending) - 1; i >= 0; i-- {
				if pending[i].tagName != tagName {
					continue
				}
				if pending[i].depth > 0 {
					pending[i].depth--
					break
				}
				if err := closePending(i); err != nil {
					return err
				}
				break
			}

			if _, err := dst.Write(raw); err != nil {
				return err
			}

		default:
			if _, err := dst.Write(tokenizer.Raw()); err != nil {
				return err
			}
		}
	}
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
