package quadrature

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheConcurrentFirstUse(t *testing.T) {
	const n = 37
	const workers = 16
	var wg sync.WaitGroup
	results := make([][]float64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, _, err := Hermite(n)
			require.NoError(t, err)
			results[i] = x
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		require.Equal(t, results[0], results[i])
	}
}

func TestCacheReturnsCopies(t *testing.T) {
	x1, w1, err := Hermite(11)
	require.NoError(t, err)
	x1[0] = 1e9
	w1[0] = 1e9
	x2, w2, err := Hermite(11)
	require.NoError(t, err)
	require.NotEqual(t, x1[0], x2[0], "caller mutation must not reach the cache")
	require.NotEqual(t, w1[0], w2[0], "caller mutation must not reach the cache")
}
