package reedsolomon

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUncorrectable is returned when a block holds more errors than its
// error correction codewords can repair.
var ErrUncorrectable = errors.New("reedsolomon: uncorrectable block")

// Decode corrects block in place. The last ecLen bytes are error correction
// codewords. It returns the number of corrected bytes.
func (f *Field) Decode(block []byte, ecLen int) (int, error) {
	if ecLen <= 0 || ecLen >= len(block) {
		return 0, fmt.Errorf("reedsolomon: %d ec codewords for a block of %d: %w", ecLen, len(block), ErrUncorrectable)
	}
	synd := f.syndromes(block, ecLen)
	if synd == nil {
		return 0, nil
	}

	sigma := f.berlekampMassey(synd)
	errs := len(sigma) - 1
	if errs <= 0 || 2*errs > ecLen || sigma[errs] == 0 {
		return 0, ErrUncorrectable
	}

	// Chien search over the positions of the block
	n := len(block)
	var positions []int
	for p := range n {
		xInv := f.Inv(f.Exp(n - 1 - p))
		if f.evalLow(sigma, xInv) == 0 {
			positions = append(positions, p)
		}
	}
	if len(positions) != errs {
		return 0, ErrUncorrectable
	}

	// Forney: omega = S(x)·sigma(x) mod x^ecLen
	omega := make([]byte, ecLen)
	for i := range ecLen {
		for j := 0; j <= i && j < len(sigma); j++ {
			omega[i] ^= f.Mul(sigma[j], synd[i-j])
		}
	}
	deriv := make([]byte, len(sigma)-1)
	for i := 1; i < len(sigma); i += 2 {
		deriv[i-1] = sigma[i]
	}
	for _, p := range positions {
		x := f.Exp(n - 1 - p)
		xInv := f.Inv(x)
		den := f.evalLow(deriv, xInv)
		if den == 0 {
			return 0, ErrUncorrectable
		}
		mag := f.Mul(f.evalLow(omega, xInv), f.Inv(den))
		// X^(1-base)
		for range 1 - f.base {
			mag = f.Mul(mag, x)
		}
		for range f.base - 1 {
			mag = f.Mul(mag, xInv)
		}
		block[p] ^= mag
	}
	if f.syndromes(block, ecLen) != nil {
		return 0, ErrUncorrectable
	}
	return errs, nil
}

// syndromes returns nil when block is a valid codeword.
func (f *Field) syndromes(block []byte, ecLen int) []byte {
	synd := make([]byte, ecLen)
	clean := true
	for i := range synd {
		synd[i] = f.eval(block, f.Exp(i+f.base))
		if synd[i] != 0 {
			clean = false
		}
	}
	if clean {
		return nil
	}
	return synd
}

// berlekampMassey returns the error locator, lowest degree first, or nil
// when its degree falls short of the linear complexity.
func (f *Field) berlekampMassey(synd []byte) []byte {
	c := []byte{1}
	b := []byte{1}
	l, m := 0, 1
	var bd byte = 1
	for n := range synd {
		d := synd[n]
		for i := 1; i <= l && i < len(c); i++ {
			d ^= f.Mul(c[i], synd[n-i])
		}
		if d == 0 {
			m++
			continue
		}
		t := slices.Clone(c)
		coef := f.Mul(d, f.Inv(bd))
		if need := len(b) + m; len(c) < need {
			c = append(c, make([]byte, need-len(c))...)
		}
		for i, v := range b {
			c[i+m] ^= f.Mul(coef, v)
		}
		if 2*l <= n {
			l = n + 1 - l
			b, bd, m = t, d, 1
		} else {
			m++
		}
	}
	if len(c) < l+1 {
		return nil
	}
	return c[:l+1]
}
