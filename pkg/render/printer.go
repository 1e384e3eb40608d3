package render

import (
	"bytes"
	"strings"
)

const indentSize = 2

// printer accumulates rendered SQL with indentation tracking. One printer
// serves one Render call; it is never shared.
type printer struct {
	output      *bytes.Buffer
	depth       int
	atLineStart bool
}

func newPrinter() *printer {
	return &printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the rendered output with a single trailing newline.
func (p *printer) String() string {
	return strings.TrimRight(p.output.String(), "\n") + "\n"
}

func (p *printer) write(s string) {
	if p.atLineStart && len(s) > 0 && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *printer) writeln() {
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *printer) indent() {
	p.depth++
}

func (p *printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

// list prints count items with separators, one per line when multiline.
func (p *printer) list(count int, format func(i int) error, sep string, multiline bool) error {
	for i := 0; i < count; i++ {
		if err := format(i); err != nil {
			return err
		}
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			}
		}
	}
	return nil
}
