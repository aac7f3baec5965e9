package network

import "strings"

// InfoBuilder accumulates the human-readable info lines a Network's
// process() appends, following the convention that a line beginning with
// "* " is a header and "- " is a bullet grouped under the most recently
// opened header.
type InfoBuilder struct {
	lines []string
}

// Header opens a new top-level section.
func (b *InfoBuilder) Header(text string) {
	b.lines = append(b.lines, "* "+text)
}

// Bullet appends a bullet under the most recently opened header.
func (b *InfoBuilder) Bullet(text string) {
	b.lines = append(b.lines, "- "+text)
}

// Lines returns the accumulated lines in emission order.
func (b *InfoBuilder) Lines() []string {
	return b.lines
}

// String renders all lines newline-joined, for logging.
func (b *InfoBuilder) String() string {
	return strings.Join(b.lines, "\n")
}
