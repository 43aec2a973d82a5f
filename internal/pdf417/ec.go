package pdf417

import (
	"errors"
	"fmt"
)

// ErrUncorrectable is returned when a symbol holds more damage than its error
// correction codewords can repair.
var ErrUncorrectable = errors.New("pdf417: uncorrectable codewords")

const (
	numValues = 929
	generator = 3
)

// gf is the prime field GF(929) with generator 3.
var gf struct {
	exp [numValues]int
	log [numValues]int
}

func init() {
	x := 1
	for i := range numValues - 1 {
		gf.exp[i] = x
		gf.log[x] = i
		x = x * generator % numValues
	}
	gf.exp[numValues-1] = 1
}

func gfMul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return gf.exp[(gf.log[a]+gf.log[b])%(numValues-1)]
}

func gfInv(a int) int { return gf.exp[(numValues-1-gf.log[a])%(numValues-1)] }

func gfSub(a, b int) int { return (a - b + numValues) % numValues }

func gfPow(e int) int { return gf.exp[e%(numValues-1)] }

// evalLow evaluates p, lowest degree first, at x.
func evalLow(p []int, x int) int {
	v := 0
	for i := len(p) - 1; i >= 0; i-- {
		v = (gfMul(v, x) + p[i]) % numValues
	}
	return v
}

func polyMul(a, b []int) []int {
	out := make([]int, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] = (out[i+j] + gfMul(x, y)) % numValues
		}
	}
	return out
}

// syndromes evaluates the received word at α^1 .. α^ecLen. The first
// codeword is the highest power. It returns nil for a clean word.
func syndromes(cw []int, ecLen int) []int {
	s := make([]int, ecLen)
	clean := true
	for i := range ecLen {
		x := gfPow(i + 1)
		v := 0
		for _, c := range cw {
			v = (gfMul(v, x) + c) % numValues
		}
		s[i] = v
		clean = clean && v == 0
	}
	if clean {
		return nil
	}
	return s
}

// correct repairs cw in place. The last ecLen codewords are error correction;
// erasures lists positions known to be unreadable. It returns the number of
// repaired codewords.
func correct(cw []int, ecLen int, erasures []int) (int, error) {
	if ecLen <= 0 || ecLen >= len(cw) {
		return 0, fmt.Errorf("%d ec codewords for %d: %w", ecLen, len(cw), ErrUncorrectable)
	}
	synd := syndromes(cw, ecLen)
	if synd == nil {
		return 0, nil
	}
	if len(erasures) > ecLen-2 {
		return 0, fmt.Errorf("%d erasures: %w", len(erasures), ErrUncorrectable)
	}

	n := len(cw)
	locator := func(pos int) int { return gfPow(n - 1 - pos) }

	// erasure locator Γ(x) = Π (1 - Y x)
	gamma := []int{1}
	for _, pos := range erasures {
		gamma = polyMul(gamma, []int{1, gfSub(0, locator(pos))})
	}

	// Berlekamp-Massey seeded with the erasure locator
	c := append([]int(nil), gamma...)
	b := append([]int(nil), gamma...)
	l, m, bd := len(erasures), 1, 1
	for r := len(erasures); r < ecLen; r++ {
		d := 0
		for i := 0; i < len(c) && i <= r; i++ {
			d = (d + gfMul(c[i], synd[r-i])) % numValues
		}
		if d == 0 {
			m++
			continue
		}
		coef := gfMul(d, gfInv(bd))
		next := append([]int(nil), c...)
		for len(next) < len(b)+m {
			next = append(next, 0)
		}
		for i, v := range b {
			next[i+m] = gfSub(next[i+m], gfMul(coef, v))
		}
		if 2*l <= r+len(erasures) {
			l = r + 1 + len(erasures) - l
			b, bd, m = c, d, 1
		} else {
			m++
		}
		c = next
	}
	for len(c) > 1 && c[len(c)-1] == 0 {
		c = c[:len(c)-1]
	}
	errs := len(c) - 1
	if errs == 0 || 2*(errs-len(erasures))+len(erasures) > ecLen {
		return 0, ErrUncorrectable
	}

	// Chien search
	var positions, roots []int
	for pos := range n {
		xinv := gfInv(locator(pos))
		if evalLow(c, xinv) == 0 {
			positions = append(positions, pos)
			roots = append(roots, xinv)
		}
	}
	if len(positions) != errs {
		return 0, ErrUncorrectable
	}

	// Forney: e = -Ω(X⁻¹) / Λ'(X⁻¹)
	omega := polyMul(synd, c)
	if len(omega) > ecLen {
		omega = omega[:ecLen]
	}
	deriv := make([]int, len(c)-1)
	for i := 1; i < len(c); i++ {
		deriv[i-1] = gfMul(i%numValues, c[i])
	}
	for k, pos := range positions {
		den := evalLow(deriv, roots[k])
		if den == 0 {
			return 0, ErrUncorrectable
		}
		e := gfSub(0, gfMul(evalLow(omega, roots[k]), gfInv(den)))
		cw[pos] = gfSub(cw[pos], e)
	}
	if syndromes(cw, ecLen) != nil {
		return 0, ErrUncorrectable
	}
	return errs, nil
}
