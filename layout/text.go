package layout

import (
	"strconv"
	"strings"

	"github.com/wippyai/value-witness/errors"
)

// Parse assembles the text form of a layout program.
func Parse(src string) ([]byte, error) {
	p := &parser{src: src}
	prog, err := p.values("")
	if err != nil {
		return nil, err
	}
	p.space()
	if p.pos < len(p.src) {
		return nil, errors.Syntax(p.pos, "unexpected "+strconv.QuoteRune(rune(p.src[p.pos])))
	}
	return prog, nil
}

// MustParse is Parse that panics on error. Intended for tests and fixed tables.
func MustParse(src string) []byte {
	prog, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return prog
}

// emptyMarker is the text form of an empty layout program.
const emptyMarker = '_'

type parser struct {
	src string
	pos int
}

func (p *parser) space() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() (byte, bool) {
	p.space()
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) expect(c byte) error {
	got, ok := p.peek()
	if !ok {
		return errors.Syntax(p.pos, "expected "+strconv.QuoteRune(rune(c))+", got end of input")
	}
	if got != c {
		return errors.Syntax(p.pos, "expected "+strconv.QuoteRune(rune(c))+", got "+strconv.QuoteRune(rune(got)))
	}
	p.pos++
	return nil
}

func (p *parser) number() (uint32, error) {
	p.space()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, errors.Syntax(start, "expected number")
	}
	n, err := strconv.ParseUint(p.src[start:p.pos], 10, 32)
	if err != nil {
		return 0, errors.Syntax(start, "number out of range")
	}
	return uint32(n), nil
}

// angle reads "<n>".
func (p *parser) angle() (uint32, error) {
	if err := p.expect('<'); err != nil {
		return 0, err
	}
	n, err := p.number()
	if err != nil {
		return 0, err
	}
	return n, p.expect('>')
}

// values reads nodes until end of input or one of the stop characters.
func (p *parser) values(stop string) ([]byte, error) {
	b := NewBuilder()
	for {
		c, ok := p.peek()
		if !ok || strings.IndexByte(stop, c) >= 0 {
			return b.Build()
		}
		if err := p.value(b); err != nil {
			return nil, err
		}
	}
}

func (p *parser) value(b *Builder) error {
	start := p.pos
	c := p.src[p.pos]
	p.pos++

	if _, ok := ScalarWidthOf(c); ok {
		b.tag(c)
		return nil
	}
	if _, ok := RefKindOf(c); ok {
		b.tag(c)
		return nil
	}

	switch c {
	case emptyMarker:
		// Stands for an empty program, e.g. the only payload in "E<0>(_)".
	case TagAlignedGroup:
		fields, err := p.fields()
		if err != nil {
			return err
		}
		b.Group(fields...)
	case TagSinglePayloadEnum:
		n, err := p.angle()
		if err != nil {
			return err
		}
		if err := p.expect('('); err != nil {
			return err
		}
		payload, err := p.values(")")
		if err != nil {
			return err
		}
		if err := p.expect(')'); err != nil {
			return err
		}
		b.SinglePayload(n, payload)
	case TagMultiPayloadEnum:
		n, err := p.angle()
		if err != nil {
			return err
		}
		payloads, err := p.payloads()
		if err != nil {
			return err
		}
		b.MultiPayload(n, payloads...)
	case TagGeneric:
		n, err := p.angle()
		if err != nil {
			return err
		}
		b.Generic(n)
	default:
		return errors.Syntax(start, "unknown layout tag "+strconv.QuoteRune(rune(c)))
	}
	return nil
}

func (p *parser) fields() ([]Field, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var fields []Field
	if c, ok := p.peek(); ok && c == ')' {
		p.pos++
		return fields, nil
	}
	for {
		c, ok := p.peek()
		if !ok {
			return nil, errors.Syntax(p.pos, "unterminated group")
		}
		align, valid := parseAlign(c)
		if !valid {
			return nil, errors.Syntax(p.pos, "expected alignment '0'..'7' or '?'")
		}
		p.pos++
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		body, err := p.values(",)")
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Align: align, Layout: body})

		c, _ = p.peek()
		if c == ')' {
			p.pos++
			return fields, nil
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
	}
}

func (p *parser) payloads() ([][]byte, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	var payloads [][]byte
	if c, ok := p.peek(); ok && c == ')' {
		p.pos++
		return payloads, nil
	}
	for {
		body, err := p.values("|)")
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, body)
		c, ok := p.peek()
		if !ok {
			return nil, errors.Syntax(p.pos, "unterminated enum")
		}
		p.pos++
		if c == ')' {
			return payloads, nil
		}
	}
}

// Format disassembles a layout program into its text form.
func Format(prog []byte) (string, error) {
	var b strings.Builder
	if err := format(&b, prog); err != nil {
		return "", err
	}
	return b.String(), nil
}

func format(b *strings.Builder, prog []byte) error {
	r := NewReader(prog)
	for !r.Done() {
		node, err := r.Next()
		if err != nil {
			return err
		}
		switch n := node.(type) {
		case Scalar, Reference:
			b.WriteByte(n.Tag())
		case Group:
			b.WriteString("a(")
			for i, f := range n.Fields {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteByte(alignByte(f.Align))
				b.WriteByte(':')
				if err := format(b, f.Layout); err != nil {
					return errors.At(err, "field "+strconv.Itoa(i))
				}
			}
			b.WriteByte(')')
		case SinglePayloadEnum:
			b.WriteString("e<")
			b.WriteString(strconv.FormatUint(uint64(n.NumEmpty), 10))
			b.WriteString(">(")
			if err := format(b, n.Payload); err != nil {
				return errors.At(err, "payload")
			}
			b.WriteByte(')')
		case MultiPayloadEnum:
			b.WriteString("E<")
			b.WriteString(strconv.FormatUint(uint64(n.NumEmpty), 10))
			b.WriteString(">(")
			for i, p := range n.Payloads {
				if i > 0 {
					b.WriteString(" | ")
				}
				if len(p) == 0 {
					b.WriteByte(emptyMarker)
					continue
				}
				if err := format(b, p); err != nil {
					return errors.At(err, "payload "+strconv.Itoa(i))
				}
			}
			b.WriteByte(')')
		case Generic:
			b.WriteString("A<")
			b.WriteString(strconv.FormatUint(uint64(n.Index), 10))
			b.WriteByte('>')
		}
	}
	return nil
}
