package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"small size gets minimum", 10, 1024},
		{"exact minimum", 1024, 1024},
		{"just above minimum", 1025, 2048},
		{"multiple of step", 4096, 4096},
		{"large row", 1920*4 + 1, 8192},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetPutFloat64(t *testing.T) {
	buf := GetFloat64(700)
	require.Len(t, buf, 700)
	assert.GreaterOrEqual(t, cap(buf), 1024)
	for i := range buf {
		buf[i] = float64(i)
	}
	PutFloat64(buf)

	again := GetFloat64(1000)
	assert.Len(t, again, 1000)
	PutFloat64(again)
	PutFloat64(nil)
}

func TestGetBytes(t *testing.T) {
	buf := GetBytes(3000)
	require.Len(t, buf, 3000)
	assert.Equal(t, 3072, cap(buf))
	PutBytes(buf)
	PutBytes(make([]byte, 10)) // not a size class, dropped
}

func TestGetBoolIsZeroed(t *testing.T) {
	buf := GetBool(64)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	for range 10 {
		b := GetBool(64)
		for i, v := range b {
			require.False(t, v, "index %d", i)
		}
		PutBool(b)
	}
}

func TestPoolConcurrentScanLines(t *testing.T) {
	const (
		workers = 8
		lines   = 200
		width   = 1280
	)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for range lines {
				samples := GetBytes(width)
				smooth := GetFloat64(width)
				for i := range samples {
					samples[i] = byte(i + seed)
					smooth[i] = float64(samples[i])
				}
				for i := range smooth {
					if smooth[i] != float64(samples[i]) {
						t.Errorf("buffer shared between goroutines")
						return
					}
				}
				PutFloat64(smooth)
				PutBytes(samples)
			}
		}(w)
	}
	wg.Wait()
}
