package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/templink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMemoryStore_Record(t *testing.T) {
	t.Run("counts requests in window", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		for i := int64(1); i <= 3; i++ {
			count, err := s.Record(context.Background(), "client1", time.Minute)

			require.NoError(t, err)
			assert.Equal(t, i, count)
		}
	})

	t.Run("tracks keys independently", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		_, _ = s.Record(context.Background(), "client1", time.Minute)
		_, _ = s.Record(context.Background(), "client1", time.Minute)

		count, err := s.Record(context.Background(), "client2", time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("prunes entries outside the window", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		_, _ = s.Record(context.Background(), "client1", 20*time.Millisecond)

		time.Sleep(30 * time.Millisecond)

		count, err := s.Record(context.Background(), "client1", 20*time.Millisecond)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}
