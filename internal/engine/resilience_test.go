package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/domain"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		payload    string
		wantID     string
		wantStatus bool
		wantOK     bool
	}{
		{"76561198000000001:on", "76561198000000001", true, true},
		{"76561198000000001:off", "76561198000000001", false, true},
		{"abc:true", "abc", true, true},
		{"abc:FALSE", "abc", false, true},
		{"steam:765:on", "steam:765", true, true},
		{"abc", "", false, false},
		{":on", "", false, false},
		{"abc:", "", false, false},
		{"abc:maybe", "", false, false},
	}
	for _, tt := range tests {
		id, status, ok := ParseSignal(tt.payload)
		assert.Equal(t, tt.wantOK, ok, tt.payload)
		assert.Equal(t, tt.wantID, id, tt.payload)
		assert.Equal(t, tt.wantStatus, status, tt.payload)
	}

	id, status, ok := ParseSignal(FormatSignal("x", true))
	assert.True(t, ok)
	assert.True(t, status)
	assert.Equal(t, "x", id)
}

func TestBypassManagerApply(t *testing.T) {
	m := NewBypassManager(nil, nil, zap.NewNop())
	assert.False(t, m.HasPermission("a", domain.PermissionIgnore))

	m.apply("a", true)
	assert.True(t, m.HasPermission("a", domain.PermissionIgnore))
	assert.False(t, m.HasPermission("a", "other.permission"))

	m.apply("a", false)
	assert.False(t, m.HasPermission("a", domain.PermissionIgnore))
}

func TestReloadAllVisitsEveryTarget(t *testing.T) {
	metrics := NewMetrics(nil)
	var calls []string
	boom := errors.New("boom")

	l := NewReloadListener(nil, metrics, zap.NewNop(),
		RefreshFunc(func(context.Context) error { calls = append(calls, "rules"); return boom }),
		RefreshFunc(func(context.Context) error { calls = append(calls, "casbin"); return nil }),
	)

	err := l.ReloadAll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"rules", "casbin"}, calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ErrorTotal.WithLabelValues("reload")))
}

func TestBreakerStateMetric(t *testing.T) {
	m := NewMetrics(nil)
	m.OnBreakerStateChange("host-notifier", gobreaker.StateClosed, gobreaker.StateOpen)
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("host-notifier")))
}
