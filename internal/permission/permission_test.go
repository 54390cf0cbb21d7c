package permission

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/domain"
)

func TestStatic(t *testing.T) {
	s := NewStatic([]string{"76561198000000001"})
	assert.True(t, s.HasPermission("76561198000000001", domain.PermissionIgnore))
	assert.False(t, s.HasPermission("76561198000000002", domain.PermissionIgnore))
	assert.False(t, s.HasPermission("76561198000000001", "other.permission"))
}

func TestCasbinOracle(t *testing.T) {
	dir := t.TempDir()
	policy := filepath.Join(dir, "policy.csv")
	require.NoError(t, os.WriteFile(policy, []byte(
		"p, admin, nosignsondeployables.ignore\n"+
			"p, 76561198000000009, nosignsondeployables.ignore\n"+
			"g, 76561198000000001, admin\n"), 0o644))

	o, err := NewCasbinOracle("", policy, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, o.HasPermission("76561198000000001", domain.PermissionIgnore), "via group")
	assert.True(t, o.HasPermission("76561198000000009", domain.PermissionIgnore), "direct grant")
	assert.False(t, o.HasPermission("76561198000000002", domain.PermissionIgnore))
	assert.False(t, o.HasPermission("76561198000000001", "other.permission"))

	require.NoError(t, os.WriteFile(policy, []byte("p, admin, nosignsondeployables.ignore\n"), 0o644))
	require.NoError(t, o.Reload())
	assert.False(t, o.HasPermission("76561198000000001", domain.PermissionIgnore))
}
