package polygon

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"polymigrate/internal/migration/model"

	"golang.org/x/net/html"
)

// StatementParser extracts statement fields from a package statement file.
type StatementParser interface {
	Parse(content string) (model.Statement, error)
}

// HTMLStatementParser reads the problem.html layout produced by Polygon packages.
type HTMLStatementParser struct{}

func NewHTMLStatementParser() *HTMLStatementParser {
	return &HTMLStatementParser{}
}

var leadingEmptyParagraphs = regexp.MustCompile(`^(<p>\s*</p>)+`)

func (p *HTMLStatementParser) Parse(content string) (model.Statement, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return model.Statement{}, fmt.Errorf("parse statement html failed: %w", err)
	}

	var st model.Statement
	if n := findDivByClass(doc, "title"); n != nil {
		st.Title = strings.TrimSpace(textContent(n))
	}
	if st.Legend, err = divInnerHTML(doc, "legend", false); err != nil {
		return model.Statement{}, err
	}
	if st.Input, err = divInnerHTML(doc, "input-specification", true); err != nil {
		return model.Statement{}, err
	}
	if st.Output, err = divInnerHTML(doc, "output-specification", true); err != nil {
		return model.Statement{}, err
	}
	if st.Notes, err = divInnerHTML(doc, "note", true); err != nil {
		return model.Statement{}, err
	}
	return st, nil
}

// divInnerHTML renders the element children of the first div whose class is exactly class.
// Text before the first element child is dropped; text after an element is kept with it.
func divInnerHTML(doc *html.Node, class string, skipSectionTitle bool) (string, error) {
	div := findDivByClass(doc, class)
	if div == nil {
		return "", nil
	}
	var buf bytes.Buffer
	seenElement := false
	skipping := false
	for child := div.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			seenElement = true
			skipping = skipSectionTitle && child.Data == "div" && hasClass(child, "section-title")
			if skipping {
				continue
			}
		} else if !seenElement || skipping {
			continue
		}
		if err := html.Render(&buf, child); err != nil {
			return "", fmt.Errorf("render %s failed: %w", class, err)
		}
	}
	out := strings.TrimSpace(buf.String())
	return leadingEmptyParagraphs.ReplaceAllString(out, ""), nil
}

func findDivByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == "div" && attr(n, "class") == class {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findDivByClass(child, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(textContent(child))
	}
	return sb.String()
}
