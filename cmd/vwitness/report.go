package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wippyai/value-witness/bitvec"
	"github.com/wippyai/value-witness/layout"
	"github.com/wippyai/value-witness/witness"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	spareStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98"))

	usedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// report is the analysis of one layout program.
type report struct {
	Layout           string       `json:"layout" msgpack:"layout"`
	Size             uint32       `json:"size" msgpack:"size"`
	Alignment        uint32       `json:"alignment" msgpack:"alignment"`
	SpareBits        string       `json:"spare_bits" msgpack:"spare_bits"`
	SpareBitCount    int          `json:"spare_bit_count" msgpack:"spare_bit_count"`
	ExtraInhabitants uint32       `json:"extra_inhabitants" msgpack:"extra_inhabitants"`
	Enums            []enumReport `json:"enums,omitempty" msgpack:"enums,omitempty"`

	mask bitvec.Vector
}

// enumReport describes one top-level enum node.
type enumReport struct {
	Kind                   string   `json:"kind" msgpack:"kind"`
	Offset                 uint32   `json:"offset" msgpack:"offset"`
	NumEmpty               uint32   `json:"num_empty" msgpack:"num_empty"`
	PayloadSizes           []uint32 `json:"payload_sizes" msgpack:"payload_sizes"`
	TagsInExtraInhabitants uint32   `json:"tags_in_extra_inhabitants" msgpack:"tags_in_extra_inhabitants"`
	TagSize                uint32   `json:"tag_size" msgpack:"tag_size"`
	Size                   uint32   `json:"size" msgpack:"size"`
}

func analyze(prog []byte, md witness.Metadata) (*report, error) {
	text, err := layout.Format(prog)
	if err != nil {
		return nil, err
	}
	size, err := witness.ComputeSize(prog, md)
	if err != nil {
		return nil, err
	}
	align, err := witness.ComputeAlignment(prog, md)
	if err != nil {
		return nil, err
	}
	mask, err := witness.ComputeSpareBits(prog, md)
	if err != nil {
		return nil, err
	}

	r := &report{
		Layout:           text,
		Size:             size,
		Alignment:        align,
		SpareBits:        mask.String(),
		SpareBitCount:    mask.Count(),
		ExtraInhabitants: mask.CountExtraInhabitants(),
		mask:             mask,
	}

	var offset uint32
	nodes := layout.NewReader(prog)
	for !nodes.Done() {
		start := nodes.Offset()
		n, err := nodes.Next()
		if err != nil {
			return nil, err
		}
		switch n := n.(type) {
		case layout.SinglePayloadEnum:
			e, err := witness.ReadSinglePayloadEnum(n, md)
			if err != nil {
				return nil, err
			}
			r.Enums = append(r.Enums, enumReport{
				Kind:                   "single",
				Offset:                 offset,
				NumEmpty:               e.NumEmpty,
				PayloadSizes:           []uint32{e.PayloadSize},
				TagsInExtraInhabitants: e.TagsInExtraInhabitants,
				TagSize:                e.TagSize,
				Size:                   e.Size,
			})
		case layout.MultiPayloadEnum:
			e, err := witness.ReadMultiPayloadEnum(n, md)
			if err != nil {
				return nil, err
			}
			r.Enums = append(r.Enums, enumReport{
				Kind:                   "multi",
				Offset:                 offset,
				NumEmpty:               e.NumEmpty,
				PayloadSizes:           e.PayloadSizes,
				TagsInExtraInhabitants: e.TagsInExtraInhabitants,
				TagSize:                e.TagSize,
				Size:                   e.Size,
			})
		}
		s, err := witness.ComputeSize(prog[start:nodes.Offset()], md)
		if err != nil {
			return nil, err
		}
		offset += s
	}
	return r, nil
}

// writeReports encodes reports in the requested format.
func writeReports(w io.Writer, format string, color bool, reports []*report) error {
	switch format {
	case "", "text":
		for i, r := range reports {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprint(w, renderReport(r, color))
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		enc.UseCompactInts(true)
		if len(reports) == 1 {
			return enc.Encode(reports[0])
		}
		return enc.Encode(reports)
	}
	return fmt.Errorf("invalid --format value %q (expected text|json|msgpack)", format)
}

func renderReport(r *report, color bool) string {
	p := message.NewPrinter(language.English)
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	b.WriteString(style(titleStyle, r.Layout))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %d bytes, align %d\n", style(labelStyle, "size:"), r.Size, r.Alignment)
	fmt.Fprintf(&b, "%s %s\n", style(labelStyle, "spare bits:"), renderMask(r.mask, color))
	b.WriteString(p.Sprintf("            %d spare, %d extra inhabitants\n", r.SpareBitCount, r.ExtraInhabitants))
	for _, e := range r.Enums {
		b.WriteString(p.Sprintf("%s %s-payload at +%d: %d empty, %d in extra inhabitants, tag %d bytes, payloads %v\n",
			style(labelStyle, "enum:"), e.Kind, e.Offset, e.NumEmpty, e.TagsInExtraInhabitants, e.TagSize, e.PayloadSizes))
	}
	return b.String()
}

// renderMask prints each byte of the mask in binary, spare bits highlighted.
func renderMask(mask bitvec.Vector, color bool) string {
	if mask.Len() == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for i := 0; i < mask.Len(); i++ {
		if i > 0 && i%8 == 0 {
			b.WriteByte(' ')
		}
		switch {
		case mask.Bit(i) && color:
			b.WriteString(spareStyle.Render("1"))
		case mask.Bit(i):
			b.WriteByte('1')
		case color:
			b.WriteString(usedStyle.Render("0"))
		default:
			b.WriteByte('0')
		}
	}
	return b.String()
}
