package page

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Seed returns the largest integer value among the page's <input> elements.
// Inputs whose value is not an integer are skipped. A page without any
// numeric input yields 0.
func Seed(r io.Reader) (int64, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return 0, fmt.Errorf("failed to parse page: %w", err)
	}

	var (
		seed  int64
		found bool
	)
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.Data != "input" {
			continue
		}
		value, ok := attr(n, "value")
		if !ok {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		if !found || ts > seed {
			seed, found = ts, true
		}
	}
	return seed, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
