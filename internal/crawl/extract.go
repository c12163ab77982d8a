package crawl

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var headingTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// HeadingTags lists the heading tag classes in rank order.
var HeadingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// BodyTags lists the body tag classes.
var BodyTags = []string{"p", "li"}

const contentTagSelector = "h1, h2, h3, h4, h5, h6, p, li"

// IsHeading reports whether tag is a heading tag class.
func IsHeading(tag string) bool {
	return headingTags[tag]
}

// Unit is one extracted line of text with its DOM context: the source
// element's tag class, a structural path resolving to that element, and
// the text of the nearest enclosing heading (empty for heading units and
// for body text before the first heading).
type Unit struct {
	Tag      string
	Text     string
	Location string
	Heading  string
}

// PageTitle returns the trimmed document <title> text, or empty string.
func PageTitle(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// ExtractUnits walks the elements matched by contentSelector (whole
// document when empty) and yields one Unit per non-empty line of each
// heading, paragraph and list item, in document order. A selector that
// matches nothing yields nil: missing content is a normal skipped case,
// not an error. Multi-line element text produces one unit per line, all
// sharing the element's tag, location and heading context.
func ExtractUnits(doc *goquery.Document, contentSelector string) []Unit {
	if doc == nil {
		return nil
	}

	scope := doc.Selection
	if contentSelector != "" {
		scope = doc.Find(contentSelector).First()
		if scope.Length() == 0 {
			return nil
		}
	}

	var units []Unit
	currentHeading := ""

	scope.Find(contentTagSelector).Each(func(_ int, sel *goquery.Selection) {
		tag := goquery.NodeName(sel)
		text := strings.TrimSpace(sel.Text())

		heading := ""
		if IsHeading(tag) {
			currentHeading = text
		} else {
			heading = currentHeading
		}

		location := selectorPath(sel.Get(0))
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			units = append(units, Unit{
				Tag:      tag,
				Text:     line,
				Location: location,
				Heading:  heading,
			})
		}
	})

	return units
}

// selectorPath builds a CSS-selector-like structural path for a node:
// tag names from the root down, ordinal-qualified with :nth-of-type when
// an element shares its tag with siblings. Re-applying the path to the
// same DOM resolves to exactly this element.
func selectorPath(node *html.Node) string {
	if node == nil {
		return ""
	}

	var components []string
	for child := node; child != nil && child.Type == html.ElementNode; child = child.Parent {
		parent := child.Parent
		if parent == nil {
			components = append(components, child.Data)
			break
		}

		ordinal, total := 0, 0
		for sibling := parent.FirstChild; sibling != nil; sibling = sibling.NextSibling {
			if sibling.Type == html.ElementNode && sibling.Data == child.Data {
				total++
				if sibling == child {
					ordinal = total
				}
			}
		}

		if total > 1 {
			components = append(components, fmt.Sprintf("%s:nth-of-type(%d)", child.Data, ordinal))
		} else {
			components = append(components, child.Data)
		}
	}

	for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
		components[i], components[j] = components[j], components[i]
	}
	return strings.Join(components, " > ")
}
