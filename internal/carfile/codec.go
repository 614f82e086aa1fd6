package carfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/signalsfoundry/suspension-kinematics/model"
)

// maxString bounds string lengths read from a file.
const maxString = 1 << 16

// encoder writes little-endian values and keeps the first error.
type encoder struct {
	w   io.Writer
	buf [8]byte
	err error
}

func (e *encoder) put(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) int32(v int32) {
	binary.LittleEndian.PutUint32(e.buf[:4], uint32(v))
	e.put(e.buf[:4])
}

func (e *encoder) float64(v float64) {
	binary.LittleEndian.PutUint64(e.buf[:8], math.Float64bits(v))
	e.put(e.buf[:8])
}

func (e *encoder) bool(v bool) {
	if v {
		e.int32(1)
		return
	}
	e.int32(0)
}

func (e *encoder) string(s string) {
	e.int32(int32(len(s)))
	e.put([]byte(s))
}

func (e *encoder) point(p model.Point) {
	for _, v := range p {
		e.float64(v)
	}
}

func (e *encoder) points(ps []model.Point) {
	e.int32(int32(len(ps)))
	for _, p := range ps {
		e.point(p)
	}
}

// decoder mirrors encoder.
type decoder struct {
	r   io.Reader
	buf [8]byte
	err error
}

func (d *decoder) fill(n int) []byte {
	if d.err != nil {
		return nil
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return nil
	}
	return d.buf[:n]
}

func (d *decoder) int32() int32 {
	b := d.fill(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (d *decoder) float64() float64 {
	b := d.fill(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (d *decoder) bool() bool {
	switch v := d.int32(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("boolean value %d", v)
		return false
	}
}

func (d *decoder) string() string {
	n := d.int32()
	if d.err != nil {
		return ""
	}
	if n < 0 || n > maxString {
		d.fail("string length %d", n)
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = io.ErrUnexpectedEOF
		return ""
	}
	return string(b)
}

func (d *decoder) point() model.Point {
	return model.Point{d.float64(), d.float64(), d.float64()}
}

// points reads a counted list into dst. Entries beyond len(dst) are
// skipped so newer files with more points still load.
func (d *decoder) points(dst []model.Point) {
	n := int(d.int32())
	if d.err != nil {
		return
	}
	if n < 0 || n > maxString {
		d.fail("point count %d", n)
		return
	}
	for i := 0; i < n && d.err == nil; i++ {
		p := d.point()
		if i < len(dst) {
			dst[i] = p
		}
	}
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...)
	}
}

// enum reads an enumeration stored as int32 and checks it against [0, limit].
func (d *decoder) enum(name string, limit int32) int32 {
	v := d.int32()
	if d.err == nil && (v < 0 || v > limit) {
		d.fail("%s %d out of range", name, v)
	}
	return v
}
