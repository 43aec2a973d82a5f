package benchmark

import (
	"bytes"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/common"
	"github.com/MeKo-Tech/zbargo/internal/symbol"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

func TestSuite(t *testing.T) {
	suite := NewSuite()
	assert.Empty(t, suite.benchmarks)

	suite.Add("test_benchmark", func() error {
		time.Sleep(time.Millisecond)
		return nil
	})

	require.Len(t, suite.benchmarks, 1)
	assert.Equal(t, "test_benchmark", suite.benchmarks[0].Name)
}

func TestSuite_Run(t *testing.T) {
	suite := NewSuite()
	suite.Add("success_test", func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	calls := 0
	suite.Add("error_test", func() error {
		calls++
		if calls == 2 {
			return errors.New("test error")
		}
		return nil
	})

	result := suite.Run("success_test", 5)
	assert.Equal(t, "success_test", result.Name)
	assert.Equal(t, 5, result.Iterations)
	require.NoError(t, result.Error)
	assert.GreaterOrEqual(t, result.Duration, 5*time.Millisecond)

	result = suite.Run("error_test", 3)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "test error")
	assert.Equal(t, 1, result.Iterations, "only completed iterations count")

	result = suite.Run("non_existent", 1)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "not found")
}

func TestSuite_RunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("a", func() error { return nil })
	suite.Add("b", func() error { return nil })

	results := suite.RunAll(2)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, "b", results[1].Name)
	assert.Equal(t, results, suite.Results())

	var buf bytes.Buffer
	suite.PrintResults(&buf)
	assert.Contains(t, buf.String(), "Benchmark Results:")
	assert.Contains(t, buf.String(), "a: 2 iterations")
	assert.Contains(t, buf.String(), "allocs/op")
}

func TestScanBenchmark(t *testing.T) {
	b := NewScanBenchmark(nil)
	b.AddImage("ean13", testutil.Gray(t, testutil.MustRender(t, testutil.DefaultCode(symbol.EAN13, "4006381333931"))))
	b.AddImage("blank", testutil.Gray(t, testutil.CreateTestImage(200, 100, color.White)))

	results := b.Run(3)
	require.Len(t, results, 2)

	assert.Equal(t, "ean13", results[0].Name)
	assert.Equal(t, 1, results[0].Symbols)
	assert.Equal(t, 3, results[0].Iterations)
	assert.Positive(t, results[0].MegapixelsPerSec())
	assert.Positive(t, results[0].Throughput.SymbolsPerSec)
	assert.Positive(t, results[0].PerOp())
	assert.Contains(t, results[0].String(), "1 symbols")

	assert.Equal(t, 0, results[1].Symbols)
	assert.Zero(t, results[1].Throughput.SymbolsPerSec)
	assert.Equal(t, 200, results[1].Width)
}

func TestScanResult_Zero(t *testing.T) {
	r := ScanResult{BenchmarkResult: common.BenchmarkResult{Name: "x"}}
	assert.Zero(t, r.MegapixelsPerSec())

	r.Error = errors.New("boom")
	assert.Contains(t, r.String(), "ERROR")
}
