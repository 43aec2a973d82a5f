package qrcode

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding"

	"github.com/MeKo-Tech/zbargo/internal/charset"
)

// ErrFormat is returned when the data bit stream is malformed.
var ErrFormat = errors.New("qrcode: malformed data")

const alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

const (
	modeTerminator = 0x0
	modeNumeric    = 0x1
	modeAlnum      = 0x2
	modeAppend     = 0x3
	modeByte       = 0x4
	modeFNC1First  = 0x5
	modeECI        = 0x7
	modeKanji      = 0x8
	modeFNC1Second = 0x9
	modeHanzi      = 0xD
)

// countBits returns the character count width of mode for version v.
func countBits(mode, v int) int {
	idx := 0
	switch {
	case v >= 27:
		idx = 2
	case v >= 10:
		idx = 1
	}
	switch mode {
	case modeNumeric:
		return [3]int{10, 12, 14}[idx]
	case modeAlnum:
		return [3]int{9, 11, 13}[idx]
	case modeByte:
		return [3]int{8, 16, 16}[idx]
	case modeKanji, modeHanzi:
		return [3]int{8, 10, 12}[idx]
	}
	return 0
}

type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) available() int { return 8*len(r.data) - r.pos }

func (r *bitReader) read(n int) (int, error) {
	if n > r.available() {
		return 0, fmt.Errorf("read %d bits with %d left: %w", n, r.available(), ErrFormat)
	}
	v := 0
	for range n {
		bit := r.data[r.pos/8] >> (7 - r.pos%8) & 1
		v = v<<1 | int(bit)
		r.pos++
	}
	return v, nil
}

// payload is the decoded content of a symbol.
type payload struct {
	data     []byte
	eci      int
	gs1      bool
	sequence int // structured append position, -1 when absent
	parity   int
}

// parseBitStream decodes the data codewords of a version v symbol. With text
// set, byte and kanji segments are converted to UTF-8.
func parseBitStream(codewords []byte, v int, text bool) (*payload, error) {
	r := &bitReader{data: codewords}
	p := &payload{eci: -1, sequence: -1, parity: -1}
	var enc encoding.Encoding
	fnc1 := false

	for r.available() >= 4 {
		mode, _ := r.read(4)
		switch mode {
		case modeTerminator:
			return p, nil
		case modeFNC1First:
			p.gs1, fnc1 = true, true
		case modeFNC1Second:
			if _, err := r.read(8); err != nil {
				return nil, err
			}
			fnc1 = true
		case modeAppend:
			seq, err := r.read(8)
			if err != nil {
				return nil, err
			}
			par, err := r.read(8)
			if err != nil {
				return nil, err
			}
			p.sequence, p.parity = seq, par
		case modeECI:
			val, err := readECI(r)
			if err != nil {
				return nil, err
			}
			cs, ok := charset.ForECI(val)
			if !ok {
				return nil, fmt.Errorf("unsupported ECI %d: %w", val, ErrFormat)
			}
			p.eci, enc = val, cs
		case modeNumeric, modeAlnum, modeByte, modeKanji, modeHanzi:
			if mode == modeHanzi {
				if subset, err := r.read(4); err != nil || subset != 1 {
					return nil, fmt.Errorf("hanzi subset: %w", ErrFormat)
				}
			}
			count, err := r.read(countBits(mode, v))
			if err != nil {
				return nil, err
			}
			var seg []byte
			switch mode {
			case modeNumeric:
				seg, err = readNumeric(r, count)
			case modeAlnum:
				seg, err = readAlnum(r, count, fnc1)
			case modeByte:
				seg, err = readBytes(r, count)
				if err == nil && text {
					seg = toUTF8(seg, enc, p.eci >= 0)
				}
			case modeKanji:
				seg, err = readDoubleByte(r, count, 0x0C0, 0x1F00, 0x8140, 0xC140)
				if err == nil && text {
					seg = charset.Convert(seg, charset.ShiftJIS)
				}
			case modeHanzi:
				seg, err = readDoubleByte(r, count, 0x060, 0x0A00, 0xA1A1, 0xA6A1)
				if err == nil && text {
					seg = charset.Convert(seg, charset.GB18030)
				}
			}
			if err != nil {
				return nil, err
			}
			p.data = append(p.data, seg...)
		default:
			return nil, fmt.Errorf("mode %#x: %w", mode, ErrFormat)
		}
	}
	return p, nil
}

func readECI(r *bitReader) (int, error) {
	first, err := r.read(8)
	if err != nil {
		return 0, err
	}
	switch {
	case first&0x80 == 0:
		return first, nil
	case first&0xC0 == 0x80:
		next, err := r.read(8)
		return (first&0x3F)<<8 | next, err
	case first&0xE0 == 0xC0:
		next, err := r.read(16)
		return (first&0x1F)<<16 | next, err
	}
	return 0, fmt.Errorf("ECI designator %#x: %w", first, ErrFormat)
}

func readNumeric(r *bitReader, count int) ([]byte, error) {
	out := make([]byte, 0, count)
	for count > 0 {
		n, width := 3, 10
		switch count {
		case 1:
			n, width = 1, 4
		case 2:
			n, width = 2, 7
		}
		v, err := r.read(width)
		if err != nil {
			return nil, err
		}
		s := fmt.Sprintf("%0*d", n, v)
		if len(s) != n {
			return nil, fmt.Errorf("numeric group %d: %w", v, ErrFormat)
		}
		out = append(out, s...)
		count -= n
	}
	return out, nil
}

func readAlnum(r *bitReader, count int, fnc1 bool) ([]byte, error) {
	out := make([]byte, 0, count)
	for count > 0 {
		n, width := 2, 11
		if count == 1 {
			n, width = 1, 6
		}
		v, err := r.read(width)
		if err != nil {
			return nil, err
		}
		vals := []int{v}
		if n == 2 {
			vals = []int{v / 45, v % 45}
		}
		for _, c := range vals {
			if c >= len(alphanumeric) {
				return nil, fmt.Errorf("alphanumeric value %d: %w", c, ErrFormat)
			}
			out = append(out, alphanumeric[c])
		}
		count -= n
	}
	if !fnc1 {
		return out, nil
	}
	// in FNC1 mode "%" separates fields and "%%" is a literal percent sign
	res := out[:0]
	for i := 0; i < len(out); i++ {
		switch {
		case out[i] != '%':
			res = append(res, out[i])
		case i+1 < len(out) && out[i+1] == '%':
			res = append(res, '%')
			i++
		default:
			res = append(res, 0x1d)
		}
	}
	return res, nil
}

func readBytes(r *bitReader, count int) ([]byte, error) {
	out := make([]byte, count)
	for i := range out {
		v, err := r.read(8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

// readDoubleByte unpacks 13 bit kanji or hanzi values into their two byte encoding.
func readDoubleByte(r *bitReader, count, div, split, lowBase, highBase int) ([]byte, error) {
	out := make([]byte, 0, 2*count)
	for range count {
		v, err := r.read(13)
		if err != nil {
			return nil, err
		}
		c := (v/div)<<8 | v%div
		if c < split {
			c += lowBase
		} else {
			c += highBase
		}
		out = append(out, byte(c>>8), byte(c))
	}
	return out, nil
}

// toUTF8 converts a byte segment with the ECI charset, or with a guessed one
// when no ECI was given.
func toUTF8(seg []byte, cs encoding.Encoding, hasECI bool) []byte {
	if hasECI {
		return charset.Convert(seg, cs)
	}
	return charset.Convert(seg, charset.Guess(seg))
}
