package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{
			name:    "expired entry",
			expires: now.Add(-1 * time.Hour),
			want:    true,
		},
		{
			name:    "valid entry",
			expires: now.Add(1 * time.Hour),
			want:    false,
		},
		{
			name:    "expires exactly now",
			expires: now,
			want:    true,
		},
		{
			name:    "no expiration",
			expires: time.Time{},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Entry{ExpiresAt: tt.expires}
			if got := entry.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expires time.Time
		want    time.Duration
	}{
		{
			name:    "one hour remaining",
			expires: now.Add(1 * time.Hour),
			want:    1 * time.Hour,
		},
		{
			name:    "already expired",
			expires: now.Add(-1 * time.Hour),
			want:    0,
		},
		{
			name:    "never expires",
			expires: time.Time{},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Entry{ExpiresAt: tt.expires}
			if got := entry.TTL(now); got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	withTTL := NewEntry([]byte("x"), 5*time.Minute, now)
	if !withTTL.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v", withTTL.ExpiresAt, now.Add(5*time.Minute))
	}
	if !withTTL.CachedAt.Equal(now) {
		t.Errorf("CachedAt = %v, want %v", withTTL.CachedAt, now)
	}

	forever := NewEntry([]byte("x"), 0, now)
	if forever.HasExpiry() {
		t.Error("entry with zero TTL should not expire")
	}
}
