package version

import (
	"runtime"
	"testing"
)

// setBuild overrides the ldflags variables for the duration of a test.
func setBuild(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, Commit, BuildTime = version, commit, buildTime
}

func TestString(t *testing.T) {
	setBuild(t, "1.2.3", "abc1234", "2024-10-21T09:15:00Z")

	want := "1.2.3 (abc1234) built 2024-10-21T09:15:00Z"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGet(t *testing.T) {
	setBuild(t, "dev", "unknown", "unknown")

	info := Get()
	if info.Version != "dev" || info.Commit != "unknown" || info.BuildTime != "unknown" {
		t.Errorf("Get() = %+v, want default build values", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestLogAttrs(t *testing.T) {
	setBuild(t, "2.0.0", "def5678", "now")

	attrs := LogAttrs()
	if len(attrs) != 6 {
		t.Fatalf("LogAttrs() returned %d values, want 6", len(attrs))
	}
	if attrs[1] != "2.0.0" || attrs[3] != "def5678" || attrs[5] != "now" {
		t.Errorf("LogAttrs() = %v", attrs)
	}
}
