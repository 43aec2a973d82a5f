package pdf417

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/MeKo-Tech/zbargo/internal/charset"
)

// ErrFormat is returned when the corrected codewords do not parse.
var ErrFormat = errors.New("pdf417: malformed data")

const (
	latchText     = 900
	latchByte     = 901
	latchNumeric  = 902
	shiftByte     = 913
	macroTerm     = 922
	macroOptional = 923
	latchByte6    = 924
	eciUser       = 925
	eciGeneral    = 926
	eciCharset    = 927
	macroControl  = 928
	maxNumericRun = 15
	macroIndexLen = 2
)

type textMode int

const (
	modeAlpha textMode = iota
	modeLower
	modeMixed
	modePunct
	modeAlphaShift
	modePunctShift
)

var (
	punctChars = []byte(";<>@[\\]_`~!\r\t,:\n-.$/\"|*()?{}'")
	mixedChars = []byte("0123456789&\r\t,:#-.$/+%*=^")
)

var pow900 [maxNumericRun + 1]*big.Int

func init() {
	pow900[0] = big.NewInt(1)
	for i := 1; i < len(pow900); i++ {
		pow900[i] = new(big.Int).Mul(pow900[i-1], big.NewInt(900))
	}
}

// Macro carries the Macro PDF417 control block of a segmented message.
type Macro struct {
	SegmentIndex int
	FileID       string
	FileName     string
	SegmentCount int
	Last         bool
}

// message is the decoded content of the data codewords.
type message struct {
	data  []byte
	eci   int
	macro *Macro
}

// parser walks the data codewords; cw[0] is the length descriptor.
type parser struct {
	cw   []int
	pos  int
	text bool
	eci  int
	out  bytes.Buffer
	raw  bytes.Buffer // pending byte compaction output
}

func parseCodewords(cw []int, text bool) (*message, error) {
	p := &parser{cw: cw, pos: 1, text: text, eci: -1}
	msg := &message{eci: -1}
	mode := latchText
	for p.pos < len(p.cw) {
		var err error
		switch mode {
		case latchText:
			p.textSegment(&p.out)
		case latchByte, latchByte6:
			p.byteSegment(mode)
		case latchNumeric:
			err = p.numericSegment(&p.out)
		case shiftByte, eciCharset:
			if p.pos >= len(p.cw) {
				err = fmt.Errorf("mode %d without operand: %w", mode, ErrFormat)
				break
			}
			if mode == shiftByte {
				p.raw.WriteByte(byte(p.cw[p.pos]))
				p.pos++
				break
			}
			p.flushBytes()
			p.eci = p.cw[p.pos]
			msg.eci = p.eci
			p.pos++
		case eciGeneral:
			p.pos += 2
		case eciUser:
			p.pos++
		case macroControl:
			msg.macro, err = p.macroBlock()
		default:
			err = fmt.Errorf("unexpected mode codeword %d: %w", mode, ErrFormat)
		}
		if err != nil {
			return nil, err
		}
		if p.pos < len(p.cw) {
			mode = p.cw[p.pos]
			p.pos++
			if mode < latchText {
				// data without a latch continues in text compaction
				mode = latchText
				p.pos--
			}
		}
	}
	p.flushBytes()
	if p.out.Len() == 0 && msg.macro == nil {
		return nil, fmt.Errorf("empty message: %w", ErrFormat)
	}
	msg.data = p.out.Bytes()
	return msg, nil
}

// flushBytes moves pending byte compaction output to the message.
func (p *parser) flushBytes() {
	if p.raw.Len() == 0 {
		return
	}
	p.out.Write(p.convert(p.raw.Bytes()))
	p.raw.Reset()
}

// convert maps raw bytes to UTF-8 when text is requested.
func (p *parser) convert(b []byte) []byte {
	if p.text {
		return charset.ToUTF8(b, p.eci)
	}
	return b
}

// textSegment decodes text compaction into out up to the next mode codeword
// other than a text latch or byte shift.
func (p *parser) textSegment(out *bytes.Buffer) {
	p.flushBytes()
	mode, prior := modeAlpha, modeAlpha
	for p.pos < len(p.cw) {
		c := p.cw[p.pos]
		switch {
		case c < latchText:
			p.pos++
			for _, v := range [2]int{c / 30, c % 30} {
				mode, prior = textValue(out, v, mode, prior)
			}
			continue
		case c == latchText:
			p.pos++
			mode = modeAlpha
			continue
		case c == shiftByte && p.pos+1 < len(p.cw):
			out.Write(p.convert([]byte{byte(p.cw[p.pos+1])}))
			p.pos += 2
			continue
		}
		return
	}
}

func textValue(out *bytes.Buffer, v int, mode, prior textMode) (textMode, textMode) {
	emit := func(b byte) { out.WriteByte(b) }
	switch mode {
	case modeAlpha, modeLower:
		switch {
		case v < 26 && mode == modeAlpha:
			emit(byte('A' + v))
		case v < 26:
			emit(byte('a' + v))
		case v == 26:
			emit(' ')
		case v == 27 && mode == modeAlpha:
			return modeLower, prior
		case v == 27:
			return modeAlphaShift, mode
		case v == 28:
			return modeMixed, prior
		case v == 29:
			return modePunctShift, mode
		}
	case modeMixed:
		switch {
		case v < 25:
			emit(mixedChars[v])
		case v == 25:
			return modePunct, prior
		case v == 26:
			emit(' ')
		case v == 27:
			return modeLower, prior
		case v == 28:
			return modeAlpha, prior
		case v == 29:
			return modePunctShift, mode
		}
	case modePunct:
		if v < 29 {
			emit(punctChars[v])
		} else {
			return modeAlpha, prior
		}
	case modeAlphaShift:
		if v < 26 {
			emit(byte('A' + v))
		} else if v == 26 {
			emit(' ')
		}
		return prior, prior
	case modePunctShift:
		if v < 29 {
			emit(punctChars[v])
			return prior, prior
		}
		return modeAlpha, prior
	}
	return mode, prior
}

// byteSegment unpacks groups of five codewords into six bytes; a shorter
// tail carries one byte per codeword.
func (p *parser) byteSegment(mode int) {
	for p.pos < len(p.cw) {
		for p.pos < len(p.cw) && p.cw[p.pos] == eciCharset && p.pos+1 < len(p.cw) {
			p.flushBytes()
			p.eci = p.cw[p.pos+1]
			p.pos += 2
		}
		n := 0
		for p.pos+n < len(p.cw) && n < 5 && p.cw[p.pos+n] < latchText {
			n++
		}
		if n == 0 {
			return
		}
		more := p.pos+n < len(p.cw) && p.cw[p.pos+n] < latchText
		if n == 5 && (mode == latchByte6 || more) {
			var v int64
			for _, c := range p.cw[p.pos : p.pos+5] {
				v = v*900 + int64(c)
			}
			for i := 5; i >= 0; i-- {
				p.raw.WriteByte(byte(v >> (8 * i)))
			}
			p.pos += 5
			continue
		}
		for _, c := range p.cw[p.pos : p.pos+n] {
			p.raw.WriteByte(byte(c))
		}
		p.pos += n
	}
}

// numericSegment converts runs of up to fifteen base 900 codewords to decimal digits.
func (p *parser) numericSegment(out *bytes.Buffer) error {
	p.flushBytes()
	for p.pos < len(p.cw) {
		n := 0
		for p.pos+n < len(p.cw) && n < maxNumericRun && p.cw[p.pos+n] < latchText {
			n++
		}
		if n == 0 {
			return nil
		}
		s, err := base900(p.cw[p.pos : p.pos+n])
		if err != nil {
			return err
		}
		out.WriteString(s)
		p.pos += n
		if p.pos < len(p.cw) && p.cw[p.pos] == latchNumeric {
			p.pos++
		}
	}
	return nil
}

// base900 converts codewords to decimal and strips the leading 1 every group carries.
func base900(cw []int) (string, error) {
	v := new(big.Int)
	for i, c := range cw {
		v.Add(v, new(big.Int).Mul(pow900[len(cw)-1-i], big.NewInt(int64(c))))
	}
	s := v.String()
	if s[0] != '1' {
		return "", fmt.Errorf("numeric group %s: %w", s, ErrFormat)
	}
	return s[1:], nil
}

func (p *parser) macroBlock() (*Macro, error) {
	if p.pos+macroIndexLen > len(p.cw) {
		return nil, fmt.Errorf("short macro block: %w", ErrFormat)
	}
	m := &Macro{}
	idx, err := base900(p.cw[p.pos : p.pos+macroIndexLen])
	if err != nil {
		return nil, err
	}
	if idx != "" {
		if m.SegmentIndex, err = strconv.Atoi(idx); err != nil {
			return nil, fmt.Errorf("segment index %q: %w", idx, ErrFormat)
		}
	}
	p.pos += macroIndexLen

	var id bytes.Buffer
	for p.pos < len(p.cw) && p.cw[p.pos] != macroTerm && p.cw[p.pos] != macroOptional {
		fmt.Fprintf(&id, "%03d", p.cw[p.pos])
		p.pos++
	}
	if id.Len() == 0 {
		return nil, fmt.Errorf("macro without file id: %w", ErrFormat)
	}
	m.FileID = id.String()

	for p.pos < len(p.cw) {
		switch p.cw[p.pos] {
		case macroTerm:
			m.Last = true
			p.pos++
		case macroOptional:
			if p.pos+1 >= len(p.cw) {
				return nil, fmt.Errorf("truncated optional field: %w", ErrFormat)
			}
			field := p.cw[p.pos+1]
			p.pos += 2
			if err := p.optionalField(m, field); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("codeword %d in macro block: %w", p.cw[p.pos], ErrFormat)
		}
	}
	return m, nil
}

func (p *parser) optionalField(m *Macro, field int) error {
	switch field {
	case 0, 3, 4:
		// file name, sender and addressee are text; only the name is kept
		var name bytes.Buffer
		p.textSegment(&name)
		if field == 0 {
			m.FileName = name.String()
		}
	case 1, 2, 5, 6:
		var digits bytes.Buffer
		if err := p.numericSegment(&digits); err != nil {
			return err
		}
		if field == 1 {
			n, err := strconv.Atoi(digits.String())
			if err != nil {
				return fmt.Errorf("segment count %q: %w", digits.String(), ErrFormat)
			}
			m.SegmentCount = n
		}
	default:
		return fmt.Errorf("optional field %d: %w", field, ErrFormat)
	}
	return nil
}
