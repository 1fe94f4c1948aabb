package collect

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Viewport is the parsed content of a page's <meta name="viewport">.
type Viewport struct {
	Found      bool
	Content    string
	Properties map[string]string
}

// MobileOptimized reports whether the viewport adapts to the device:
// width=device-width or a positive initial-scale.
func (v Viewport) MobileOptimized() bool {
	if !v.Found {
		return false
	}
	if strings.EqualFold(v.Properties["width"], "device-width") {
		return true
	}
	if s, ok := v.Properties["initial-scale"]; ok {
		f, err := strconv.ParseFloat(s, 64)
		return err == nil && f > 0
	}
	return false
}

// ParseViewport returns the first viewport meta tag of an HTML document.
// Documents without one yield a zero Viewport.
func ParseViewport(r io.Reader) (Viewport, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Viewport{}, err
	}
	var vp Viewport
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta &&
			strings.EqualFold(attr(n, "name"), "viewport") {
			vp = Viewport{Found: true, Content: attr(n, "content")}
			vp.Properties = parseViewportContent(vp.Content)
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return vp, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// parseViewportContent splits "width=device-width, initial-scale=1" into
// lower-cased keys. Both commas and semicolons separate properties.
func parseViewportContent(content string) map[string]string {
	props := make(map[string]string)
	fields := strings.FieldsFunc(content, func(r rune) bool { return r == ',' || r == ';' })
	for _, f := range fields {
		key, val, _ := strings.Cut(f, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		props[key] = strings.TrimSpace(val)
	}
	return props
}
