package ticker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("AAPL")
	r.Add("AAPL")

	require.Equal(t, []string{"AAPL"}, r.Snapshot())
	require.Equal(t, 1, r.Len())
}

func TestRegistry_CaseSensitiveAndUnvalidated(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("AAPL")
	r.Add("aapl")
	r.Add("")

	require.ElementsMatch(t, []string{"AAPL", "aapl", ""}, r.Snapshot())
	require.True(t, r.Contains(""))
	require.False(t, r.Contains("MSFT"))
}

func TestRegistry_ConcurrentAdds_ExactlyOnce(t *testing.T) {
	t.Parallel()

	// Arrange: 10 distinct symbols, each added by many goroutines
	const workers = 64
	symbols := make([]string, 10)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%d", i)
	}

	r := NewRegistry()
	var wg sync.WaitGroup
	start := make(chan struct{})

	// Act: race all inserts, with snapshots interleaved
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			<-start
			for i := range symbols {
				r.Add(symbols[(i+w)%len(symbols)])
				if i%3 == 0 {
					_ = r.Snapshot()
				}
			}
		}(w)
	}
	close(start)
	wg.Wait()

	// Assert: each distinct value appears exactly once
	snap := r.Snapshot()
	require.Len(t, snap, len(symbols))
	require.ElementsMatch(t, symbols, snap)
}

func TestRegistry_SnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add("AAPL")
	r.Add("MSFT")

	snap := r.Snapshot()
	snap[0] = "MUTATED"
	r.Add("GOOG")

	require.Equal(t, []string{"MUTATED", "MSFT"}, snap)
	require.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, r.Snapshot())
}
