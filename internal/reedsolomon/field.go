// Package reedsolomon corrects errors in codewords over GF(256), the field
// used by QR Code.
package reedsolomon

import "fmt"

// Field is GF(256) built from a primitive polynomial. Codewords are evaluated
// at the consecutive roots α^base .. α^(base+n-1).
type Field struct {
	exp       [512]byte
	log       [256]int
	primitive int
	base      int
}

// QRField is x^8 + x^4 + x^3 + x^2 + 1 with generator base 0.
var QRField = NewField(0x11D, 0)

// NewField builds the exponent and logarithm tables of GF(256).
func NewField(primitive, base int) *Field {
	f := &Field{primitive: primitive, base: base}
	x := 1
	for i := range 255 {
		f.exp[i] = byte(x)
		f.log[x] = i
		x <<= 1
		if x >= 256 {
			x ^= primitive
		}
	}
	for i := 255; i < len(f.exp); i++ {
		f.exp[i] = f.exp[i-255]
	}
	return f
}

// Exp returns α^a.
func (f *Field) Exp(a int) byte { return f.exp[a%255] }

// Mul returns a·b.
func (f *Field) Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[f.log[a]+f.log[b]]
}

// Inv returns the multiplicative inverse of a non-zero a.
func (f *Field) Inv(a byte) byte {
	if a == 0 {
		panic("reedsolomon: inverse of zero")
	}
	return f.exp[255-f.log[a]]
}

func (f *Field) String() string {
	return fmt.Sprintf("GF(256, 0x%x)", f.primitive)
}

// eval evaluates p, stored highest degree first, at x.
func (f *Field) eval(p []byte, x byte) byte {
	var y byte
	for _, c := range p {
		y = f.Mul(y, x) ^ c
	}
	return y
}

// evalLow evaluates p, stored lowest degree first, at x.
func (f *Field) evalLow(p []byte, x byte) byte {
	var y byte
	for i := len(p) - 1; i >= 0; i-- {
		y = f.Mul(y, x) ^ p[i]
	}
	return y
}
