package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortableHome(t *testing.T) {
	root := t.TempDir()
	t.Setenv("CHARTVIEW_HOME", root)

	assert.Equal(t, filepath.Join(root, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(root, "state"), StateDir())
	assert.Equal(t, filepath.Join(root, "state", "logs"), LogDir())
	assert.Equal(t, filepath.Join(root, "config", "chartview.yml"), GlobalConfigPath())
}

func TestXDGOverrides(t *testing.T) {
	t.Setenv("CHARTVIEW_HOME", "")
	cfg := t.TempDir()
	state := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfg)
	t.Setenv("XDG_STATE_HOME", state)

	assert.Equal(t, filepath.Join(cfg, "chartview"), ConfigDir())
	assert.Equal(t, filepath.Join(state, "chartview"), StateDir())
}
