package services

import "testing"

func TestCooldownSecondsForFailCount(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{1, 2},
		{2, 4},
		{3, 8},
		{4, 16},
		{5, 30}, // capped
		{10, 30},
	}
	for _, tt := range tests {
		if got := CooldownSecondsForFailCount(tt.failCount); got != tt.want {
			t.Errorf("CooldownSecondsForFailCount(%d) = %d, want %d", tt.failCount, got, tt.want)
		}
	}
}
