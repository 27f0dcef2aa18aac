package webauthncbor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxDepth bounds nesting of arrays, maps and tags.
const MaxDepth = 32

const (
	majorUnsigned byte = iota
	majorNegative
	majorBytes
	majorText
	majorArray
	majorMap
	majorTag
	majorSimple
)

const (
	infoUint8      = 24
	infoUint16     = 25
	infoUint32     = 26
	infoUint64     = 27
	infoIndefinite = 31

	simpleFalse     = 20
	simpleTrue      = 21
	simpleNull      = 22
	simpleUndefined = 23

	breakCode = 0xff
)

var (
	ErrUnexpectedEnd   = errors.New("cbor: unexpected end of data")
	ErrReservedInfo    = errors.New("cbor: reserved additional information value")
	ErrUnexpectedBreak = errors.New("cbor: unexpected \"break\" code")
	ErrIndefinite      = errors.New("cbor: invalid indefinite-length item")
	ErrInvalidUTF8     = errors.New("cbor: invalid UTF-8 in text string")
	ErrTooDeep         = errors.New("cbor: exceeded maximum nesting depth")
	ErrTrailingData    = errors.New("cbor: trailing data after item")
)

// Decode reads one data item from the front of data and returns it together
// with the unread remainder.
func Decode(data []byte) (Value, []byte, error) {
	d := &decoder{data: data}
	v, err := d.value(0)
	if err != nil {
		return Value{}, nil, err
	}
	return v, data[d.off:], nil
}

// DecodeExact reads exactly one data item and rejects trailing bytes.
func DecodeExact(data []byte) (Value, error) {
	v, rest, err := Decode(data)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, fmt.Errorf("%w: %d bytes", ErrTrailingData, len(rest))
	}
	return v, nil
}

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) remaining() int {
	return len(d.data) - d.off
}

func (d *decoder) take(n uint64) ([]byte, error) {
	if n > uint64(d.remaining()) {
		return nil, ErrUnexpectedEnd
	}
	b := d.data[d.off : d.off+int(n)]
	d.off += int(n)
	return b, nil
}

// head reads an initial byte and its argument. For indefinite-length items
// indefinite is set and arg is zero.
func (d *decoder) head() (major, info byte, arg uint64, indefinite bool, err error) {
	if d.remaining() < 1 {
		return 0, 0, 0, false, ErrUnexpectedEnd
	}
	b := d.data[d.off]
	d.off++
	major, info = b>>5, b&0x1f

	switch {
	case info < infoUint8:
		return major, info, uint64(info), false, nil
	case info == infoUint8:
		p, err := d.take(1)
		if err != nil {
			return 0, 0, 0, false, err
		}
		return major, info, uint64(p[0]), false, nil
	case info == infoUint16:
		p, err := d.take(2)
		if err != nil {
			return 0, 0, 0, false, err
		}
		return major, info, uint64(binary.BigEndian.Uint16(p)), false, nil
	case info == infoUint32:
		p, err := d.take(4)
		if err != nil {
			return 0, 0, 0, false, err
		}
		return major, info, uint64(binary.BigEndian.Uint32(p)), false, nil
	case info == infoUint64:
		p, err := d.take(8)
		if err != nil {
			return 0, 0, 0, false, err
		}
		return major, info, binary.BigEndian.Uint64(p), false, nil
	case info == infoIndefinite:
		return major, info, 0, true, nil
	default:
		return 0, 0, 0, false, ErrReservedInfo
	}
}

func (d *decoder) atBreak() bool {
	if d.remaining() > 0 && d.data[d.off] == breakCode {
		d.off++
		return true
	}
	return false
}

func (d *decoder) value(depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, ErrTooDeep
	}

	major, info, arg, indefinite, err := d.head()
	if err != nil {
		return Value{}, err
	}

	switch major {
	case majorUnsigned, majorNegative:
		if indefinite {
			return Value{}, ErrIndefinite
		}
		kind := KindUnsigned
		if major == majorNegative {
			kind = KindNegative
		}
		return Value{Kind: kind, Uint: arg}, nil

	case majorBytes:
		b, err := d.str(major, arg, indefinite)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBytes, Bytes: b}, nil

	case majorText:
		b, err := d.str(major, arg, indefinite)
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{}, ErrInvalidUTF8
		}
		return Value{Kind: KindText, Text: string(b)}, nil

	case majorArray:
		return d.array(arg, indefinite, depth)

	case majorMap:
		return d.dict(arg, indefinite, depth)

	case majorTag:
		if indefinite {
			return Value{}, ErrIndefinite
		}
		inner, err := d.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindTag, Uint: arg, Tagged: &inner}, nil

	default:
		return simple(info, arg, indefinite)
	}
}

// str reads a byte or text string. Indefinite strings are a sequence of
// definite chunks of the same major type terminated by a break.
func (d *decoder) str(major byte, n uint64, indefinite bool) ([]byte, error) {
	if !indefinite {
		b, err := d.take(n)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}

	out := []byte{}
	for !d.atBreak() {
		m, _, size, chunkIndefinite, err := d.head()
		if err != nil {
			return nil, err
		}
		if m != major || chunkIndefinite {
			return nil, ErrIndefinite
		}
		chunk, err := d.take(size)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (d *decoder) array(n uint64, indefinite bool, depth int) (Value, error) {
	v := Value{Kind: KindArray}
	if indefinite {
		for !d.atBreak() {
			if d.remaining() == 0 {
				return Value{}, ErrUnexpectedEnd
			}
			item, err := d.value(depth + 1)
			if err != nil {
				return Value{}, err
			}
			v.Array = append(v.Array, item)
		}
		return v, nil
	}

	// every item takes at least one byte
	if n > uint64(d.remaining()) {
		return Value{}, ErrUnexpectedEnd
	}
	v.Array = make([]Value, 0, n)
	for i := uint64(0); i < n; i++ {
		item, err := d.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		v.Array = append(v.Array, item)
	}
	return v, nil
}

func (d *decoder) dict(n uint64, indefinite bool, depth int) (Value, error) {
	v := Value{Kind: KindMap}
	entry := func() error {
		key, err := d.value(depth + 1)
		if err != nil {
			return err
		}
		val, err := d.value(depth + 1)
		if err != nil {
			return err
		}
		v.Map = append(v.Map, Entry{Key: key, Value: val})
		return nil
	}

	if indefinite {
		for !d.atBreak() {
			if d.remaining() == 0 {
				return Value{}, ErrUnexpectedEnd
			}
			if err := entry(); err != nil {
				return Value{}, err
			}
		}
		return v, nil
	}

	if n > uint64(d.remaining())/2 {
		return Value{}, ErrUnexpectedEnd
	}
	v.Map = make([]Entry, 0, n)
	for i := uint64(0); i < n; i++ {
		if err := entry(); err != nil {
			return Value{}, err
		}
	}
	return v, nil
}

func simple(info byte, arg uint64, indefinite bool) (Value, error) {
	if indefinite {
		return Value{}, ErrUnexpectedBreak
	}

	switch info {
	case simpleFalse:
		return Value{Kind: KindBool, Bool: false}, nil
	case simpleTrue:
		return Value{Kind: KindBool, Bool: true}, nil
	case simpleNull:
		return Value{Kind: KindNull}, nil
	case simpleUndefined:
		return Value{Kind: KindUndefined}, nil
	case infoUint16:
		return Value{Kind: KindFloat, Float: halfToFloat(uint16(arg))}, nil
	case infoUint32:
		return Value{Kind: KindFloat, Float: float64(math.Float32frombits(uint32(arg)))}, nil
	case infoUint64:
		return Value{Kind: KindFloat, Float: math.Float64frombits(arg)}, nil
	default:
		return Value{Kind: KindSimple, Uint: arg}, nil
	}
}

// halfToFloat converts an IEEE 754 binary16 value.
func halfToFloat(h uint16) float64 {
	exp := int(h>>10) & 0x1f
	mant := float64(h & 0x3ff)

	var f float64
	switch exp {
	case 0:
		f = math.Ldexp(mant, -24)
	case 0x1f:
		if mant == 0 {
			f = math.Inf(1)
		} else {
			f = math.NaN()
		}
	default:
		f = math.Ldexp(mant+1024, exp-25)
	}

	if h&0x8000 != 0 {
		return -f
	}
	return f
}
