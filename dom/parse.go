package dom

import (
	"bytes"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Parse builds a queryable document from a raw page body.
//
// The body is decoded to UTF-8 using the Content-Type header and any <meta>
// charset declaration (falling back to the raw bytes when the declared
// encoding is unknown). Malformed markup never fails: the HTML5 parser
// always produces a best-effort tree. Only reader errors are returned.
func Parse(body []byte, contentType string) (*goquery.Document, error) {
	var r io.Reader = bytes.NewReader(body)
	if decoded, err := charset.NewReader(r, contentType); err == nil {
		r = decoded
	} else {
		r = bytes.NewReader(body)
	}

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// ParseString is Parse for markup already held as a UTF-8 string.
func ParseString(markup string) (*goquery.Document, error) {
	return Parse([]byte(markup), "text/html; charset=utf-8")
}
