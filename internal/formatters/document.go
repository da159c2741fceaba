package formatters

import (
	"fmt"
	"strings"
)

// document renders the same report structure as plain text or markdown
type document struct {
	b        strings.Builder
	markdown bool
}

func newDocument(markdown bool) *document {
	return &document{markdown: markdown}
}

func (d *document) title(s string) {
	if d.markdown {
		fmt.Fprintf(&d.b, "# %s\n\n", s)
		return
	}
	fmt.Fprintf(&d.b, "=== %s ===\n\n", strings.ToUpper(s))
}

func (d *document) section(s string) {
	if d.markdown {
		fmt.Fprintf(&d.b, "## %s\n\n", s)
		return
	}
	fmt.Fprintf(&d.b, "%s:\n", s)
}

func (d *document) field(label string, value any) {
	if d.markdown {
		fmt.Fprintf(&d.b, "**%s:** %v  \n", label, value)
		return
	}
	fmt.Fprintf(&d.b, "%s: %v\n", label, value)
}

func (d *document) para(s string) {
	d.b.WriteString(strings.TrimSpace(s))
	d.b.WriteString("\n\n")
}

func (d *document) bullets(items []string, empty string) {
	if len(items) == 0 {
		if empty != "" {
			fmt.Fprintf(&d.b, "%s\n\n", empty)
		}
		return
	}
	for _, item := range items {
		fmt.Fprintf(&d.b, "- %s\n", item)
	}
	d.b.WriteString("\n")
}

func (d *document) numbered(items []string) {
	for i, item := range items {
		fmt.Fprintf(&d.b, "%d. %s\n", i+1, item)
	}
	d.b.WriteString("\n")
}

func (d *document) strong(s string) string {
	if d.markdown {
		return "**" + s + "**"
	}
	return s
}

func (d *document) blank() {
	d.b.WriteString("\n")
}

func (d *document) String() string {
	return strings.TrimRight(d.b.String(), "\n") + "\n"
}
