package version

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestApplyBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	info := Info{Version: "dev", Commit: "none", BuildDate: "unknown"}
	applyBuildInfo(&info, bi)
	assert.Equal(t, "v0.3.1", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", info.BuildDate)
	assert.True(t, info.Modified)

	// Linker values win.
	info = Info{Version: "v1.0.0", Commit: "deadbeef", BuildDate: "today"}
	applyBuildInfo(&info, bi)
	assert.Equal(t, "v1.0.0", info.Version)
	assert.Equal(t, "deadbeef", info.Commit)
	assert.Equal(t, "today", info.BuildDate)
}

func TestInfoString(t *testing.T) {
	out := Info{Version: "v1.2.3", Commit: "abc123", Modified: true}.String()
	assert.Contains(t, out, "Version:\tv1.2.3")
	assert.Contains(t, out, "Commit:\t\tabc123 (modified)")
}
