package witness

import (
	"strconv"

	"go.uber.org/zap"

	valuewitness "github.com/wippyai/value-witness"
	"github.com/wippyai/value-witness/bitvec"
	"github.com/wippyai/value-witness/errors"
	"github.com/wippyai/value-witness/layout"
)

// Destroyer releases the references owned by values living in mem.
type Destroyer struct {
	mem     valuewitness.Memory
	objects ObjectRuntime
}

// NewDestroyer creates a destroyer that reads from mem and releases
// through objects.
func NewDestroyer(mem valuewitness.Memory, objects ObjectRuntime) *Destroyer {
	return &Destroyer{mem: mem, objects: objects}
}

// Destroy walks the value described by prog at addr and releases every
// reference it owns. Multi-payload enum payloads are stripped of their tag
// bits in place before they are walked.
func (d *Destroyer) Destroy(addr uint32, prog []byte, md Metadata) error {
	if d.mem == nil {
		return errors.InvalidInput(errors.PhaseDestroy, "memory is nil")
	}
	if d.objects == nil {
		return errors.InvalidInput(errors.PhaseDestroy, "object runtime is nil")
	}
	w := &walk{Destroyer: d, calc: newCalculator(md)}
	_, err := w.destroy(addr, prog)
	return err
}

type walk struct {
	*Destroyer
	calc *calculator
}

// destroy walks prog at addr and returns the address past the value.
func (w *walk) destroy(addr uint32, prog []byte) (uint32, error) {
	r := layout.NewReader(prog)
	for !r.Done() {
		node, err := r.Next()
		if err != nil {
			return 0, err
		}
		if err := w.node(addr, node); err != nil {
			return 0, err
		}
		size, err := w.calc.nodeSize(node)
		if err != nil {
			return 0, err
		}
		if addr, err = addAddr(addr, size); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

func addAddr(addr, size uint32) (uint32, error) {
	next, err := addSize(addr, size)
	if err != nil {
		return 0, errors.OutOfBounds(errors.PhaseDestroy, addr, size)
	}
	return next, nil
}

func (w *walk) node(addr uint32, node layout.Node) error {
	switch n := node.(type) {
	case layout.Scalar:
		return nil
	case layout.Reference:
		return w.reference(addr, n.Kind)
	case layout.Group:
		return w.group(addr, n)
	case layout.SinglePayloadEnum:
		return w.singlePayload(addr, n)
	case layout.MultiPayloadEnum:
		return w.multiPayload(addr, n)
	case layout.Generic:
		t, err := resolve(w.calc.md, n.Index)
		if err != nil {
			return err
		}
		return t.Destroy(w.mem, w.objects, addr)
	}
	return errors.UnknownTag(errors.PhaseDestroy, 0, node.Tag())
}

func (w *walk) reference(addr uint32, kind layout.RefKind) error {
	if kind == layout.RefThickFunction {
		// Only the context word is owned.
		var err error
		if addr, err = addAddr(addr, 8); err != nil {
			return err
		}
	}
	word, err := w.mem.ReadU64(addr)
	if err != nil {
		return errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "read "+kind.String()+" reference")
	}
	if word == 0 {
		return nil
	}
	Logger().Debug("release reference",
		zap.Stringer("kind", kind),
		zap.Uint32("addr", addr),
		zap.Uint64("word", word))
	release(w.objects, kind, word)
	return nil
}

func (w *walk) group(base uint32, g layout.Group) error {
	fields, err := w.calc.placeFields(g)
	if err != nil {
		return err
	}
	for i, p := range fields {
		addr, err := addAddr(base, p.offset)
		if err != nil {
			return err
		}
		if _, err := w.destroy(addr, p.field.Layout); err != nil {
			return errors.At(err, "field "+strconv.Itoa(i))
		}
	}
	return nil
}

func (w *walk) read(addr, size uint32) ([]byte, error) {
	buf, err := w.mem.Read(addr, size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "read enum")
	}
	return buf, nil
}

func (w *walk) singlePayload(addr uint32, n layout.SinglePayloadEnum) error {
	e, err := w.calc.singlePayload(n)
	if err != nil {
		return err
	}
	buf, err := w.read(addr, e.Size)
	if err != nil {
		return err
	}

	if e.TagsInExtraInhabitants > 0 {
		payload := bitvec.FromBytes(buf[:e.PayloadSize]...)
		if payload.And(e.PayloadSpareBits).Any() {
			Logger().Debug("empty case in extra inhabitant", zap.Uint32("addr", addr))
			return nil
		}
	}
	if e.TagSize > 0 && readTagField(buf[e.PayloadSize:]) != 0 {
		Logger().Debug("empty case in tag", zap.Uint32("addr", addr))
		return nil
	}

	_, err = w.destroy(addr, e.Payload)
	return errors.At(err, "payload")
}

func (w *walk) multiPayload(addr uint32, n layout.MultiPayloadEnum) error {
	e, err := w.calc.multiPayload(n)
	if err != nil {
		return err
	}
	buf, err := w.read(addr, e.Size)
	if err != nil {
		return err
	}

	tag, err := ExtractPayloadTag(e, buf)
	if err != nil {
		return err
	}
	if tag >= e.NumPayloads() {
		Logger().Debug("empty case", zap.Uint32("addr", addr), zap.Uint32("tag", tag))
		return nil
	}

	payload := buf[:e.PayloadSize]
	e.CommonSpareBits.Not().MaskBytes(payload)
	if err := w.mem.Write(addr, payload); err != nil {
		return errors.Wrap(errors.PhaseMemory, errors.KindOutOfBounds, err, "strip enum tag")
	}

	Logger().Debug("destroy payload", zap.Uint32("addr", addr), zap.Uint32("tag", tag))
	_, err = w.destroy(addr, e.Payloads[tag])
	return errors.At(err, "payload "+strconv.Itoa(int(tag)))
}
