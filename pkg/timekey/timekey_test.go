package timekey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAtIsDeterministic(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, At(at, "event-1"), At(at, "event-1"), "retries derive the same key")
	assert.NotEqual(t, At(at, "event-1"), At(at, "event-2"), "hash suffix separates same-millisecond events")
}

func TestKeyOrderFollowsEventTime(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	k1 := At(base, "zzz")
	k2 := At(base.Add(time.Millisecond), "aaa")
	assert.Less(t, k1, k2, "later events always sort after earlier ones regardless of id")
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, at.UnixMilli(), Time(At(at, "e")).UnixMilli())
}

func TestAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "10s ago"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{49 * time.Hour, "2d ago"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Age(At(now.Add(-tc.ago), "e"), now))
	}
}
