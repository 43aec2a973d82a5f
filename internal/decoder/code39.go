package decoder

import (
	"slices"
	"strings"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

const (
	code39Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-. $/+%"
	code39Asterisk = 0x094
	code39MaxChars = maxLengthLimit + 3
	// element widths of consecutive characters may drift by this fraction
	code39CharDrift = 0.3
)

var code39Encodings = [43]int{
	0x034, 0x121, 0x061, 0x160, 0x031, 0x130, 0x070, 0x025, 0x124, 0x064,
	0x109, 0x049, 0x148, 0x019, 0x118, 0x058, 0x00D, 0x10C, 0x04C, 0x01C,
	0x103, 0x043, 0x142, 0x013, 0x112, 0x052, 0x007, 0x106, 0x046, 0x016,
	0x181, 0x0C1, 0x1C0, 0x091, 0x190, 0x0D0, 0x085, 0x184, 0x0C4, 0x0A8,
	0x0A2, 0x08A, 0x02A,
}

// Code39 decodes Code 39, optionally with a modulo-43 check character and full ASCII.
type Code39 struct {
	s    Settings
	ring *ring
	ws   []float64
}

// NewCode39 returns a Code 39 decoder.
func NewCode39(s Settings) *Code39 {
	return &Code39{s: s, ring: newRing(10*code39MaxChars + 2), ws: make([]float64, 0, 9)}
}

func (d *Code39) Symbology() symbol.Base { return symbol.Code39 }

func (d *Code39) Reset() { d.ring.reset() }

func (d *Code39) Flush() []Candidate { return nil }

func (d *Code39) Push(e Element) []Candidate {
	d.ring.push(e)
	if e.Bar || d.ring.avail() < 2*10+1 {
		return nil
	}
	for _, rev := range []bool{false, true} {
		if c, ok := d.decode(rev); ok {
			return []Candidate{c}
		}
	}
	return nil
}

// char decodes the 9 elements back(i+8) .. back(i).
func (d *Code39) char(i int, rev bool) (byte, float64, float64, bool) {
	ws := d.ring.widths(i, 9, d.ws)
	if rev {
		slices.Reverse(ws)
	}
	mask, ok := wideMask(ws, 3)
	if !ok {
		return 0, 0, 0, false
	}
	w := sum(ws)
	narrow := narrowWidth(ws, mask)
	if mask == code39Asterisk {
		return '*', w, narrow, true
	}
	if idx := slices.Index(code39Encodings[:], mask); idx >= 0 {
		return code39Alphabet[idx], w, narrow, true
	}
	return 0, 0, 0, false
}

func (d *Code39) decode(rev bool) (Candidate, bool) {
	c, charW, narrow, ok := d.char(1, rev)
	if !ok || c != '*' || d.ring.back(0).Width < quietModules*narrow {
		return Candidate{}, false
	}
	chars := []byte{c}
	i := 1
	for {
		if d.ring.avail() < i+19 {
			return Candidate{}, false
		}
		if gap := d.ring.back(i + 9); gap.Width >= quietModules*narrow {
			return Candidate{}, false
		}
		i += 10
		ch, w, _, ok := d.char(i, rev)
		if !ok || w < (1-code39CharDrift)*charW || w > (1+code39CharDrift)*charW {
			return Candidate{}, false
		}
		charW = w
		chars = append(chars, ch)
		if ch == '*' {
			break
		}
		if len(chars) > code39MaxChars {
			return Candidate{}, false
		}
	}
	if d.ring.avail() < i+10 || d.ring.back(i+9).Width < quietModules*narrow {
		return Candidate{}, false
	}

	// chars run from the newest element backwards; forward reads end with the stop character
	body := chars[1 : len(chars)-1]
	if !rev {
		body = slices.Clone(body)
		slices.Reverse(body)
	}
	data, ok := d.finish(body)
	if !ok {
		return Candidate{}, false
	}
	start, end := span(d.ring, i+8, 1)
	return Candidate{Type: symbol.Type{Base: symbol.Code39}, Data: data, Start: start, End: end, Reversed: rev}, true
}

func (d *Code39) finish(body []byte) ([]byte, bool) {
	if len(body) == 0 {
		return nil, false
	}
	if d.s.AddCheck {
		if len(body) < 2 {
			return nil, false
		}
		total := 0
		for _, c := range body[:len(body)-1] {
			total += strings.IndexByte(code39Alphabet, c)
		}
		if body[len(body)-1] != code39Alphabet[total%43] {
			return nil, false
		}
		if !d.s.EmitCheck {
			body = body[:len(body)-1]
		}
	}
	if !d.s.LengthOK(len(body)) {
		return nil, false
	}
	if d.s.ASCII {
		if full, ok := code39FullASCII(body); ok {
			return full, true
		}
	}
	return slices.Clone(body), true
}

// code39FullASCII expands the shift pairs of full ASCII Code 39.
func code39FullASCII(enc []byte) ([]byte, bool) {
	out := make([]byte, 0, len(enc))
	for i := 0; i < len(enc); i++ {
		c := enc[i]
		if c != '+' && c != '$' && c != '%' && c != '/' {
			out = append(out, c)
			continue
		}
		if i+1 >= len(enc) {
			return nil, false
		}
		next := enc[i+1]
		i++
		switch c {
		case '+':
			if next < 'A' || next > 'Z' {
				return nil, false
			}
			out = append(out, next+32)
		case '$':
			if next < 'A' || next > 'Z' {
				return nil, false
			}
			out = append(out, next-64)
		case '%':
			switch {
			case next >= 'A' && next <= 'E':
				out = append(out, next-38)
			case next >= 'F' && next <= 'J':
				out = append(out, next-11)
			case next >= 'K' && next <= 'O':
				out = append(out, next+16)
			case next >= 'P' && next <= 'T':
				out = append(out, next+43)
			case next == 'U':
				out = append(out, 0)
			case next == 'V':
				out = append(out, '@')
			case next == 'W':
				out = append(out, '`')
			case next >= 'X' && next <= 'Z':
				out = append(out, 127)
			default:
				return nil, false
			}
		case '/':
			switch {
			case next >= 'A' && next <= 'O':
				out = append(out, next-32)
			case next == 'Z':
				out = append(out, ':')
			default:
				return nil, false
			}
		}
	}
	return out, true
}
