package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"0.9.0", "1.0.0", true},
		{"1.0.0", "1.0.0", false},
		{"1.2.0", "1.10.0", true},
		{"1.10.0", "1.2.0", false},
		{"0.10.0", "0.9.0", false},
		{"", "1.0.0", true},
		{"garbage", "1.0.0", true},
		{"1.0.0", "garbage", false},
		{"v1.0", "1.0.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, versionLess(tt.a, tt.b), "%q < %q", tt.a, tt.b)
	}
}

func TestIsOutdated(t *testing.T) {
	assert.True(t, IsOutdated("0.9.0"))
	assert.True(t, IsOutdated(""))
	assert.False(t, IsOutdated(CurrentVersion))
	assert.False(t, IsOutdated("1.10.0"))
}
