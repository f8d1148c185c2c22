package startup

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("STARTUP_TEST_SET", "value")

	if got := getEnv("STARTUP_TEST_SET", "fallback"); got != "value" {
		t.Errorf("getEnv(set) = %q, want value", got)
	}
	if got := getEnv("STARTUP_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("getEnv(unset) = %q, want fallback", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"0", true, false},
		{"", true, true},
		{"", false, false},
		{"not-a-bool", true, true},
	}

	for _, tt := range tests {
		key := "STARTUP_TEST_BOOL"
		if tt.value == "" {
			os.Unsetenv(key)
		} else {
			t.Setenv(key, tt.value)
		}
		if got := getEnvBool(key, tt.defaultValue); got != tt.want {
			t.Errorf("getEnvBool(%q, %v) = %v, want %v", tt.value, tt.defaultValue, got, tt.want)
		}
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("STARTUP_TEST_INT", "42")
	if got := getEnvInt("STARTUP_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt(valid) = %d, want 42", got)
	}

	t.Setenv("STARTUP_TEST_INT", "not-a-number")
	if got := getEnvInt("STARTUP_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt(invalid) = %d, want default 7", got)
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Version is empty")
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("OS/Arch = %s/%s, want %s/%s", info.OS, info.Arch, runtime.GOOS, runtime.GOARCH)
	}
}

func TestEnsureDirectory(t *testing.T) {
	base := t.TempDir()

	created := filepath.Join(base, "new-dir")
	if err := ensureDirectory(created, "test"); err != nil {
		t.Errorf("ensureDirectory(new) error = %v", err)
	}
	if info, err := os.Stat(created); err != nil || !info.IsDir() {
		t.Error("directory was not created")
	}

	// Existing directory is fine
	if err := ensureDirectory(created, "test"); err != nil {
		t.Errorf("ensureDirectory(existing) error = %v", err)
	}

	// A file in the way is an error
	file := filepath.Join(base, "a-file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirectory(file, "test"); err == nil {
		t.Error("ensureDirectory(file) error = nil, want error")
	}
}

func TestWriteAccess(t *testing.T) {
	dir := t.TempDir()
	if err := testWriteAccess(dir); err != nil {
		t.Errorf("testWriteAccess(writable) error = %v", err)
	}
}
