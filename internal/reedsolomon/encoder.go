package reedsolomon

// Encode returns ecLen error correction codewords for data.
func (f *Field) Encode(data []byte, ecLen int) []byte {
	gen := f.generator(ecLen)
	rem := make([]byte, ecLen)
	for _, d := range data {
		factor := d ^ rem[0]
		copy(rem, rem[1:])
		rem[ecLen-1] = 0
		for i := range rem {
			rem[i] ^= f.Mul(gen[i+1], factor)
		}
	}
	return rem
}

// generator returns the monic generator polynomial of degree n, highest degree first.
func (f *Field) generator(n int) []byte {
	g := []byte{1}
	for i := range n {
		root := f.Exp(i + f.base)
		next := make([]byte, len(g)+1)
		for j, c := range g {
			next[j] ^= c
			next[j+1] ^= f.Mul(c, root)
		}
		g = next
	}
	return g
}
