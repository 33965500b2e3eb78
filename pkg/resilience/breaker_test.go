package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker(3, 10*time.Second)

	for i := 0; i < 2; i++ {
		b.OnFailure("m1:events")
		require.NoError(t, b.Allow("m1:events"))
	}

	b.OnFailure("m1:events")
	err := b.Allow("m1:events")
	require.Error(t, err)
	require.True(t, apperrors.HasCode(err, apperrors.CodeCircuitOpen))
}

func TestBreakerKeysAreIndependent(t *testing.T) {
	b := NewBreaker(1, 10*time.Second)

	b.OnFailure("m1:events")
	require.Error(t, b.Allow("m1:events"))
	require.NoError(t, b.Allow("m2:events"))
}

func TestBreakerHalfOpensAfterCooldown(t *testing.T) {
	b := NewBreaker(1, 10*time.Second)
	now := time.Now()
	b.nowFunc = func() time.Time { return now }

	b.OnFailure("k")
	require.Error(t, b.Allow("k"))

	now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow("k"))
}

func TestBreakerSingleSuccessCloses(t *testing.T) {
	b := NewBreaker(2, 10*time.Second)
	now := time.Now()
	b.nowFunc = func() time.Time { return now }

	b.OnFailure("k")
	b.OnFailure("k")
	require.Error(t, b.Allow("k"))

	now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow("k"))
	b.OnSuccess("k")

	// failure run is cleared, a single new failure must not reopen
	b.OnFailure("k")
	require.NoError(t, b.Allow("k"))
}
