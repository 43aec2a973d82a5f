package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/symbol"
)

func sym(base symbol.Base, data string) *symbol.Symbol {
	return &symbol.Symbol{Type: symbol.Type{Base: base}, Data: []byte(data), Quality: 1, Count: -1}
}

func TestObserve_ConfirmThenDuplicate(t *testing.T) {
	c := New()
	s := sym(symbol.EAN13, "9780201379624")

	assert.Zero(t, c.Observe(symbol.NewSet(s)).Len())

	out := c.Observe(symbol.NewSet(s))
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 0, out.At(0).Count)
	assert.Equal(t, -1, s.Count, "input symbols are not modified")

	out = c.Observe(symbol.NewSet(s))
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 1, out.At(0).Count)
}

func TestObserve_SameSymbolTwiceInOneFrame(t *testing.T) {
	c := New()
	a, b := sym(symbol.QRCode, "twin"), sym(symbol.QRCode, "twin")
	assert.Zero(t, c.Observe(symbol.NewSet(a, b)).Len())

	out := c.Observe(symbol.NewSet(a, b))
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 0, out.At(0).Count)
	assert.Equal(t, 0, out.At(1).Count)
}

func TestObserve_Eviction(t *testing.T) {
	c := &Cache{EvictAfter: 2}
	s := sym(symbol.Code39, "GONE")
	c.Observe(symbol.NewSet(s))
	c.Observe(symbol.NewSet())
	assert.Equal(t, 1, c.Len())
	c.Observe(symbol.NewSet())
	assert.Zero(t, c.Len())
}

type cacheSteps struct {
	cache *Cache
	last  *symbol.Set
}

func (s *cacheSteps) aCacheEvictingAfter(n int) error {
	s.cache = &Cache{EvictAfter: n}
	return nil
}

func (s *cacheSteps) aFrameShows(name, data string) error {
	base, err := symbol.ParseBase(name)
	if err != nil {
		return err
	}
	s.last = s.cache.Observe(symbol.NewSet(sym(base, data)))
	return nil
}

func (s *cacheSteps) emptyFramesPass(n int) error {
	for range n {
		s.last = s.cache.Observe(symbol.NewSet())
	}
	return nil
}

func (s *cacheSteps) theCacheIsReset() error {
	s.cache.Reset()
	return nil
}

func (s *cacheSteps) nothingIsReported() error {
	if n := s.last.Len(); n != 0 {
		return fmt.Errorf("expected no symbols, got %d", n)
	}
	return nil
}

func (s *cacheSteps) isReportedWithCount(name, data string, count int) error {
	base, err := symbol.ParseBase(name)
	if err != nil {
		return err
	}
	for got := range s.last.All() {
		if got.Type.Base == base && string(got.Data) == data {
			if got.Count != count {
				return fmt.Errorf("%s reported with count %d, want %d", got, got.Count, count)
			}
			return nil
		}
	}
	return fmt.Errorf("%s %q not reported", name, data)
}

func (s *cacheSteps) symbolsAreTracked(n int) error {
	if got := s.cache.Len(); got != n {
		return fmt.Errorf("tracking %d symbols, want %d", got, n)
	}
	return nil
}

func initializeScenario(sc *godog.ScenarioContext) {
	s := &cacheSteps{}
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		s.cache, s.last = New(), symbol.NewSet()
		return ctx, nil
	})
	sc.Step(`^a cache evicting after (\d+) frames$`, s.aCacheEvictingAfter)
	sc.Step(`^a frame shows (\S+) "([^"]*)"$`, s.aFrameShows)
	sc.Step(`^(\d+) empty frames pass$`, s.emptyFramesPass)
	sc.Step(`^the cache is reset$`, s.theCacheIsReset)
	sc.Step(`^nothing is reported$`, s.nothingIsReported)
	sc.Step(`^(\S+) "([^"]*)" is reported with count (-?\d+)$`, s.isReportedWithCount)
	sc.Step(`^(\d+) symbols are tracked$`, s.symbolsAreTracked)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
