package decoder

import (
	"slices"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

const (
	eanMaxAvgVariance        = 0.48
	eanMaxIndividualVariance = 0.7
	// digits may deviate from 7 modules by this fraction
	eanDigitTolerance = 0.5

	addOnGapMin = 6.5
	addOnGapMax = 12.5
)

// EAN/UPC layouts in elements and modules.
const (
	ean13Elements  = 59
	ean13Modules   = 95
	ean8Elements   = 43
	ean8Modules    = 67
	upceElements   = 33
	upceModules    = 51
	addOn2Elements = 13
	addOn2Modules  = 20
	addOn5Elements = 31
	addOn5Modules  = 47
	eanRingSize    = 128
)

var (
	guardPattern      = []int{1, 1, 1}
	middlePattern     = []int{1, 1, 1, 1, 1}
	upceEndPattern    = []int{1, 1, 1, 1, 1, 1}
	addOnStartPattern = []int{1, 1, 2}
	addOnSepPattern   = []int{1, 1}
)

// eanL holds the odd-parity digit patterns; eanLG appends the even-parity (reversed) ones.
var eanL = [][]int{
	{3, 2, 1, 1}, {2, 2, 2, 1}, {2, 1, 2, 2}, {1, 4, 1, 1}, {1, 1, 3, 2},
	{1, 2, 3, 1}, {1, 1, 1, 4}, {1, 3, 1, 2}, {1, 2, 1, 3}, {3, 1, 1, 2},
}

var eanLG [][]int

func init() {
	eanLG = append(eanLG, eanL...)
	for _, p := range eanL {
		g := slices.Clone(p)
		slices.Reverse(g)
		eanLG = append(eanLG, g)
	}
}

// parity masks of the left half, indexed by the implied digit
var (
	ean13FirstDigit = [10]int{0x00, 0x0B, 0x0D, 0x0E, 0x13, 0x19, 0x1C, 0x15, 0x16, 0x1A}
	upceParity      = [2][10]int{
		{0x38, 0x34, 0x32, 0x31, 0x2C, 0x26, 0x23, 0x2A, 0x29, 0x25},
		{0x07, 0x0B, 0x0D, 0x0E, 0x13, 0x19, 0x1C, 0x15, 0x16, 0x1A},
	}
	addOn5Parity = [10]int{0x18, 0x14, 0x12, 0x11, 0x0C, 0x06, 0x03, 0x0A, 0x09, 0x05}
)

type eanLayout struct {
	elements int
	modules  int
	decode   func(ws []float64) (string, bool)
	kind     symbol.Base
}

// EAN decodes the EAN/UPC family: EAN-13, EAN-8, UPC-A, UPC-E and the ISBN
// reinterpretations, with optional 2 or 5 digit add-ons.
type EAN struct {
	cfg     *Config
	layouts []eanLayout
	ring    *ring
	ws      []float64
	state   State

	// primary decode waiting for a trailing add-on
	pending  *Candidate
	pendingX float64
	gapAt    int
}

// NewEAN returns an EAN/UPC decoder for the symbologies enabled in cfg.
func NewEAN(cfg *Config) *EAN {
	d := &EAN{cfg: cfg, ring: newRing(eanRingSize), ws: make([]float64, 0, eanRingSize)}
	if cfg.AnyEnabled(symbol.EAN13, symbol.UPCA, symbol.ISBN10, symbol.ISBN13) {
		d.layouts = append(d.layouts, eanLayout{ean13Elements, ean13Modules, decodeEAN13, symbol.EAN13})
	}
	if cfg.Enabled(symbol.EAN8) {
		d.layouts = append(d.layouts, eanLayout{ean8Elements, ean8Modules, decodeEAN8, symbol.EAN8})
	}
	if cfg.Enabled(symbol.UPCE) {
		d.layouts = append(d.layouts, eanLayout{upceElements, upceModules, decodeUPCE, symbol.UPCE})
	}
	return d
}

func (d *EAN) Symbology() symbol.Base { return symbol.EAN13 }

// State reports the decoder's progress on the current line.
func (d *EAN) State() State { return d.state }

func (d *EAN) Reset() {
	d.ring.reset()
	d.pending = nil
	d.state = StateIdle
}

func (d *EAN) Flush() []Candidate {
	var out []Candidate
	if d.pending != nil {
		out = append(out, *d.pending)
		d.pending = nil
		d.state = StateComplete
	}
	return out
}

func (d *EAN) Push(e Element) []Candidate {
	d.ring.push(e)
	if d.state == StateIdle {
		d.state = StateAccumulating
	}
	if e.Bar {
		return nil
	}

	var out []Candidate
	if d.pending != nil {
		k := d.ring.index(0) - d.gapAt
		if k == addOn2Elements+1 || k == addOn5Elements+1 {
			if c, ok := d.trailingAddOn(k - 1); ok {
				d.pending = nil
				d.state = StateComplete
				return append(out, c)
			}
		}
		if k > addOn5Elements+1 {
			out = append(out, *d.pending)
			d.pending = nil
			d.state = StateAccumulating
		}
	}

	for _, lay := range d.layouts {
		c, x, hold, ok := d.decodeAt(lay)
		if !ok {
			continue
		}
		if d.pending != nil {
			out = append(out, *d.pending)
			d.pending = nil
		}
		if hold {
			d.pending = c
			d.pendingX = x
			d.gapAt = d.ring.index(0)
			d.state = StateCandidate
		} else {
			out = append(out, *c)
			d.state = StateComplete
		}
		break
	}
	return out
}

// decodeAt tries to read a symbol of the given layout ending just before the
// newest element, which must be the trailing quiet zone. hold reports that the
// symbol is followed by an add-on gap and must wait for the add-on.
func (d *EAN) decodeAt(lay eanLayout) (c *Candidate, x float64, hold, ok bool) {
	n := lay.elements
	if d.ring.avail() < n+2 {
		return nil, 0, false, false
	}
	ws := d.ring.widths(1, n, d.ws)
	x = sum(ws) / float64(lay.modules)
	trail := d.ring.back(0)
	lead := d.ring.back(n + 1)
	if trail.Width < quietModules*x || lead.Width < quietModules*x {
		return nil, 0, false, false
	}

	rev := false
	digits, ok := lay.decode(ws)
	if !ok {
		digits, ok = lay.decode(reversed(ws))
		rev = true
	}
	if !ok {
		return nil, 0, false, false
	}
	base, data, ok := d.classify(lay.kind, digits)
	if !ok {
		return nil, 0, false, false
	}

	start, end := span(d.ring, n, 1)
	c = &Candidate{Type: symbol.Type{Base: base}, Data: data, Start: start, End: end, Reversed: rev}
	if !d.cfg.Settings(base).AddCheck {
		return c, x, false, true
	}
	if rev {
		if gap := lead.Width / x; gap >= addOnGapMin && gap <= addOnGapMax {
			d.leadingAddOn(c, n+1, x)
		}
		return c, x, false, true
	}
	gap := trail.Width / x
	return c, x, gap >= addOnGapMin && gap <= addOnGapMax, true
}

// trailingAddOn reads an add-on of n elements between the pending symbol's gap
// and the newest element.
func (d *EAN) trailingAddOn(n int) (Candidate, bool) {
	modules := addOn2Modules
	if n == addOn5Elements {
		modules = addOn5Modules
	}
	ws := d.ring.widths(1, n, d.ws)
	x := sum(ws) / float64(modules)
	if x < 0.6*d.pendingX || x > 1.6*d.pendingX || d.ring.back(0).Width < quietModules*x {
		return Candidate{}, false
	}
	digits, ok := decodeAddOn(ws)
	if !ok {
		return Candidate{}, false
	}
	c := *d.pending
	c.Data = append(slices.Clone(c.Data), digits...)
	c.Type.AddOn = addOnKind(len(digits))
	c.End = d.ring.back(1).End()
	return c, true
}

// leadingAddOn looks for a reversed add-on before the gap at back(gap).
func (d *EAN) leadingAddOn(c *Candidate, gap int, x float64) {
	for _, n := range []int{addOn5Elements, addOn2Elements} {
		if d.ring.avail() < gap+n+2 {
			continue
		}
		modules := addOn2Modules
		if n == addOn5Elements {
			modules = addOn5Modules
		}
		ws := d.ring.widths(gap+1, n, d.ws)
		ax := sum(ws) / float64(modules)
		if ax < 0.6*x || ax > 1.6*x || d.ring.back(gap+n+1).Width < quietModules*ax {
			continue
		}
		digits, ok := decodeAddOn(reversed(ws))
		if !ok {
			continue
		}
		c.Data = append(c.Data, digits...)
		c.Type.AddOn = addOnKind(len(digits))
		c.Start = d.ring.back(gap + n).Start
		return
	}
}

func addOnKind(digits int) symbol.AddOn {
	if digits == 5 {
		return symbol.AddOn5
	}
	return symbol.AddOn2
}

// classify maps decoded digits onto the enabled symbology and formats the payload.
func (d *EAN) classify(kind symbol.Base, digits string) (symbol.Base, []byte, bool) {
	emit := func(b symbol.Base, data string) (symbol.Base, []byte, bool) {
		if !d.cfg.Settings(b).EmitCheck {
			data = data[:len(data)-1]
		}
		return b, []byte(data), true
	}
	switch kind {
	case symbol.EAN8, symbol.UPCE:
		return emit(kind, digits)
	}
	switch {
	case digits[0] == '0' && d.cfg.Enabled(symbol.UPCA):
		return emit(symbol.UPCA, digits[1:])
	case digits[:3] == "978" && d.cfg.Enabled(symbol.ISBN10):
		return emit(symbol.ISBN10, isbn10(digits))
	case (digits[:3] == "978" || digits[:3] == "979") && d.cfg.Enabled(symbol.ISBN13):
		return emit(symbol.ISBN13, digits)
	case d.cfg.Enabled(symbol.EAN13):
		return emit(symbol.EAN13, digits)
	}
	return symbol.None, nil, false
}

// isbn10 converts a 978-prefixed EAN-13 into the 10 character ISBN.
func isbn10(ean string) string {
	core := ean[3:12]
	total := 0
	for i := range 9 {
		total += (10 - i) * int(core[i]-'0')
	}
	check := (11 - total%11) % 11
	if check == 10 {
		return core + "X"
	}
	return core + string(rune('0'+check))
}

func guardOK(ws []float64, pattern []int, x float64) bool {
	modules := 0.0
	for _, p := range pattern {
		modules += float64(p)
	}
	if d := sum(ws) - modules*x; d > 0.5*modules*x || d < -0.5*modules*x {
		return false
	}
	return patternVariance(ws, pattern, eanMaxIndividualVariance) < eanMaxAvgVariance
}

// eanDigit decodes one 7-module digit. g reports an even-parity (G) pattern.
func eanDigit(ws []float64, allowG bool, x float64) (digit int, g bool, ok bool) {
	if d := sum(ws) - 7*x; d > eanDigitTolerance*7*x || d < -eanDigitTolerance*7*x {
		return 0, false, false
	}
	patterns := eanL
	if allowG {
		patterns = eanLG
	}
	idx := bestPattern(ws, patterns, eanMaxAvgVariance, eanMaxIndividualVariance)
	if idx < 0 {
		return 0, false, false
	}
	return idx % 10, idx >= 10, true
}

func decodeEAN13(ws []float64) (string, bool) {
	x := sum(ws) / ean13Modules
	if !guardOK(ws[0:3], guardPattern, x) || !guardOK(ws[27:32], middlePattern, x) || !guardOK(ws[56:59], guardPattern, x) {
		return "", false
	}
	var buf [13]byte
	parity := 0
	for i := range 6 {
		digit, g, ok := eanDigit(ws[3+4*i:7+4*i], true, x)
		if !ok {
			return "", false
		}
		buf[1+i] = byte('0' + digit)
		if g {
			parity |= 1 << (5 - i)
		}
	}
	for i := range 6 {
		digit, _, ok := eanDigit(ws[32+4*i:36+4*i], false, x)
		if !ok {
			return "", false
		}
		buf[7+i] = byte('0' + digit)
	}
	first := slices.Index(ean13FirstDigit[:], parity)
	if first < 0 {
		return "", false
	}
	buf[0] = byte('0' + first)
	if !eanChecksumOK(buf[:]) {
		return "", false
	}
	return string(buf[:]), true
}

func decodeEAN8(ws []float64) (string, bool) {
	x := sum(ws) / ean8Modules
	if !guardOK(ws[0:3], guardPattern, x) || !guardOK(ws[19:24], middlePattern, x) || !guardOK(ws[40:43], guardPattern, x) {
		return "", false
	}
	var buf [8]byte
	for i := range 4 {
		digit, _, ok := eanDigit(ws[3+4*i:7+4*i], false, x)
		if !ok {
			return "", false
		}
		buf[i] = byte('0' + digit)
		digit, _, ok = eanDigit(ws[24+4*i:28+4*i], false, x)
		if !ok {
			return "", false
		}
		buf[4+i] = byte('0' + digit)
	}
	if !eanChecksumOK(buf[:]) {
		return "", false
	}
	return string(buf[:]), true
}

func decodeUPCE(ws []float64) (string, bool) {
	x := sum(ws) / upceModules
	if !guardOK(ws[0:3], guardPattern, x) || !guardOK(ws[27:33], upceEndPattern, x) {
		return "", false
	}
	var buf [8]byte
	parity := 0
	for i := range 6 {
		digit, g, ok := eanDigit(ws[3+4*i:7+4*i], true, x)
		if !ok {
			return "", false
		}
		buf[1+i] = byte('0' + digit)
		if g {
			parity |= 1 << (5 - i)
		}
	}
	found := false
	for numSys := range 2 {
		if check := slices.Index(upceParity[numSys][:], parity); check >= 0 {
			buf[0] = byte('0' + numSys)
			buf[7] = byte('0' + check)
			found = true
			break
		}
	}
	if !found || !eanChecksumOK([]byte(upceToUPCA(string(buf[:])))) {
		return "", false
	}
	return string(buf[:]), true
}

// decodeAddOn reads a 2 or 5 digit add-on given its widths in reading order.
func decodeAddOn(ws []float64) (string, bool) {
	count := 2
	modules := float64(addOn2Modules)
	if len(ws) == addOn5Elements {
		count = 5
		modules = addOn5Modules
	} else if len(ws) != addOn2Elements {
		return "", false
	}
	x := sum(ws) / modules
	if !guardOK(ws[0:3], addOnStartPattern, x) {
		return "", false
	}
	buf := make([]byte, count)
	parity := 0
	pos := 3
	for i := range count {
		digit, g, ok := eanDigit(ws[pos:pos+4], true, x)
		if !ok {
			return "", false
		}
		buf[i] = byte('0' + digit)
		if g {
			parity |= 1 << (count - 1 - i)
		}
		pos += 4
		if i < count-1 {
			if !guardOK(ws[pos:pos+2], addOnSepPattern, x) {
				return "", false
			}
			pos += 2
		}
	}
	if count == 2 {
		val := int(buf[0]-'0')*10 + int(buf[1]-'0')
		if val%4 != parity {
			return "", false
		}
		return string(buf), true
	}
	check := slices.Index(addOn5Parity[:], parity)
	if check < 0 || addOn5Checksum(buf) != check {
		return "", false
	}
	return string(buf), true
}

func addOn5Checksum(digits []byte) int {
	total := 0
	for i, c := range digits {
		if i%2 == 0 {
			total += 3 * int(c-'0')
		} else {
			total += 9 * int(c-'0')
		}
	}
	return total % 10
}

// eanCheckDigit computes the modulo-10 check digit of digits (check excluded),
// weighting the rightmost digit by 3.
func eanCheckDigit(digits []byte) int {
	total := 0
	for i := len(digits) - 1; i >= 0; i -= 2 {
		total += 3 * int(digits[i]-'0')
	}
	for i := len(digits) - 2; i >= 0; i -= 2 {
		total += int(digits[i] - '0')
	}
	return (10 - total%10) % 10
}

func eanChecksumOK(digits []byte) bool {
	if len(digits) < 2 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return eanCheckDigit(digits[:len(digits)-1]) == int(digits[len(digits)-1]-'0')
}

// upceToUPCA expands an 8 digit UPC-E value into its 12 digit UPC-A equivalent.
func upceToUPCA(upce string) string {
	m := upce[1:7]
	var mid string
	switch last := m[5]; last {
	case '0', '1', '2':
		mid = m[0:2] + string(last) + "0000" + m[2:5]
	case '3':
		mid = m[0:3] + "00000" + m[3:5]
	case '4':
		mid = m[0:4] + "00000" + m[4:5]
	default:
		mid = m[0:5] + "0000" + string(last)
	}
	return upce[0:1] + mid + upce[7:8]
}
