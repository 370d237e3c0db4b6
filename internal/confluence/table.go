// table.go: parsing and rendering of the embedded HTML table on the wiki page
package confluence

import (
	"html"
	"strings"

	"github.com/a2cps/phantomdb-go/internal/errors"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFirstTable extracts the first table embedded in a storage format
// body as a header row plus data rows. The page is expected to hold exactly
// one table; anything after the first is ignored.
func ParseFirstTable(body string) (header []string, rows [][]string, err error) {
	doc, err := xhtml.Parse(strings.NewReader(body))
	if err != nil {
		return nil, nil, tableError(err, "parse page body")
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return nil, nil, tableError(errors.NewStd("page has no table"), "locate table")
	}

	descendants(table, atom.Tr)(func(tr *xhtml.Node) bool {
		var cells []string
		for _, cell := range childCells(tr) {
			cells = append(cells, strings.TrimSpace(textContent(cell)))
		}
		if header == nil {
			header = cells
			return true
		}
		rows = append(rows, cells)
		return true
	})
	if header == nil {
		return nil, nil, tableError(errors.NewStd("table has no header row"), "locate table header")
	}
	return header, rows, nil
}

// RenderTable renders a header and records as an HTML table in the shape
// the page carries.
func RenderTable(header []string, records [][]string) string {
	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for _, h := range header {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(h))
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, record := range records {
		b.WriteString("<tr>")
		for _, cell := range record {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// ReplaceFirstTable swaps the first table in the storage body for tableHTML,
// preserving the surrounding page content.
func ReplaceFirstTable(body, tableHTML string) (string, error) {
	doc, err := xhtml.Parse(strings.NewReader(body))
	if err != nil {
		return "", tableError(err, "parse page body")
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return "", tableError(errors.NewStd("page has no table"), "locate table")
	}

	replacements, err := xhtml.ParseFragment(strings.NewReader(tableHTML), table.Parent)
	if err != nil {
		return "", tableError(err, "parse replacement table")
	}
	for _, n := range replacements {
		table.Parent.InsertBefore(n, table)
	}
	table.Parent.RemoveChild(table)

	// html.Parse normalizes the content into a full document; render only
	// the body children so the storage body stays a fragment.
	docBody := findFirst(doc, atom.Body)
	if docBody == nil {
		return "", tableError(errors.NewStd("parsed document has no body"), "render page body")
	}
	var b strings.Builder
	for child := docBody.FirstChild; child != nil; child = child.NextSibling {
		if err := xhtml.Render(&b, child); err != nil {
			return "", tableError(err, "render page body")
		}
	}
	return b.String(), nil
}

// findFirst returns the first element of the given kind in document order.
func findFirst(n *xhtml.Node, a atom.Atom) *xhtml.Node {
	if n.Type == xhtml.ElementNode && n.DataAtom == a {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, a); found != nil {
			return found
		}
	}
	return nil
}

// descendants walks the subtree and yields elements of the given kind.
func descendants(n *xhtml.Node, a atom.Atom) func(yield func(*xhtml.Node) bool) {
	return func(yield func(*xhtml.Node) bool) {
		var walk func(*xhtml.Node) bool
		walk = func(node *xhtml.Node) bool {
			if node.Type == xhtml.ElementNode && node.DataAtom == a {
				return yield(node)
			}
			for child := node.FirstChild; child != nil; child = child.NextSibling {
				if !walk(child) {
					return false
				}
			}
			return true
		}
		walk(n)
	}
}

// childCells returns the th/td elements directly under a table row.
func childCells(tr *xhtml.Node) []*xhtml.Node {
	var cells []*xhtml.Node
	for child := tr.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xhtml.ElementNode && (child.DataAtom == atom.Th || child.DataAtom == atom.Td) {
			cells = append(cells, child)
		}
	}
	return cells
}

func textContent(n *xhtml.Node) string {
	if n.Type == xhtml.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textContent(child))
	}
	return b.String()
}

func tableError(err error, operation string) error {
	return errors.New(err).
		Component("confluence").
		Category(errors.CategoryFileParsing).
		Context("operation", operation).
		Build()
}
