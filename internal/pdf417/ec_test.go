package pdf417

import (
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ecCodewords computes the error correction codewords for data.
func ecCodewords(data []int, ecLen int) []int {
	// generator g(x) = Π (x - α^i), i = 1..ecLen, highest degree first
	g := []int{1}
	for i := 1; i <= ecLen; i++ {
		next := make([]int, len(g)+1)
		root := gfPow(i)
		for j, v := range g {
			next[j] = (next[j] + v) % numValues
			next[j+1] = gfSub(next[j+1], gfMul(v, root))
		}
		g = next
	}
	rem := make([]int, ecLen)
	for _, d := range data {
		f := (d + rem[0]) % numValues
		copy(rem, rem[1:])
		rem[ecLen-1] = 0
		for j := range ecLen {
			rem[j] = gfSub(rem[j], gfMul(f, g[j+1]))
		}
	}
	// the stored codewords are the negated remainder
	for j := range rem {
		rem[j] = gfSub(0, rem[j])
	}
	return rem
}

func encodeWord(data []int, ecLen int) []int {
	return append(append([]int(nil), data...), ecCodewords(data, ecLen)...)
}

func TestField(t *testing.T) {
	assert.Equal(t, 1, gf.exp[0])
	assert.Equal(t, 3, gf.exp[1])
	for a := 1; a < numValues; a++ {
		require.Equal(t, 1, gfMul(a, gfInv(a)), "a=%d", a)
	}
	assert.Equal(t, 928, gfSub(0, 1))
}

func TestCorrect_Clean(t *testing.T) {
	cw := encodeWord([]int{5, 453, 178, 121, 239}, 8)
	assert.Nil(t, syndromes(cw, 8))
	n, err := correct(cw, 8, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCorrect_ErrorsAndErasures(t *testing.T) {
	data := []int{10, 900, 1, 2, 3, 800, 17, 42, 99}
	want := encodeWord(data, 16)

	tests := []struct {
		name     string
		errors   []int
		erasures []int
	}{
		{"errors only", []int{0, 4, 9, 20}, nil},
		{"erasures only", nil, []int{1, 2, 3, 5, 8, 13, 21, 24}},
		{"mixed", []int{7, 11}, []int{0, 3, 6, 9, 12, 15}},
		{"maximum errors", []int{0, 2, 4, 6, 8, 10, 12, 14}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cw := append([]int(nil), want...)
			for _, p := range tt.errors {
				cw[p] = (cw[p] + 1 + p) % numValues
			}
			for _, p := range tt.erasures {
				cw[p] = 0
			}
			n, err := correct(cw, 16, tt.erasures)
			require.NoError(t, err)
			assert.Equal(t, want, cw)
			assert.LessOrEqual(t, n, len(tt.errors)+len(tt.erasures))
		})
	}
}

func TestCorrect_TooMuchDamage(t *testing.T) {
	want := encodeWord([]int{6, 1, 2, 3, 4, 5}, 4)
	cw := append([]int(nil), want...)
	cw[0], cw[1], cw[2] = 100, 200, 300
	_, err := correct(cw, 4, nil)
	if err == nil {
		assert.NotEqual(t, want, cw, "three errors cannot be repaired with four codewords")
		return
	}
	assert.ErrorIs(t, err, ErrUncorrectable)
}

func TestCorrect_BadArguments(t *testing.T) {
	_, err := correct([]int{1, 2}, 2, nil)
	assert.ErrorIs(t, err, ErrUncorrectable)
}

func TestCorrect_Property(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 60
	properties := gopter.NewProperties(params)

	properties.Property("errors within capacity are repaired", prop.ForAll(
		func(seed uint64, level int) bool {
			rng := rand.New(rand.NewPCG(seed, 929))
			ecLen := 2 << level
			data := make([]int, 3+rng.IntN(40))
			for i := range data {
				data[i] = rng.IntN(900)
			}
			want := encodeWord(data, ecLen)
			cw := append([]int(nil), want...)
			nerr := rng.IntN(ecLen/2 + 1)
			for _, p := range rng.Perm(len(cw))[:min(nerr, len(cw))] {
				cw[p] = (cw[p] + 1 + rng.IntN(numValues-1)) % numValues
			}
			_, err := correct(cw, ecLen, nil)
			if err != nil {
				return false
			}
			for i := range want {
				if want[i] != cw[i] {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(0, 4),
	))
	properties.TestingRun(t)
}
