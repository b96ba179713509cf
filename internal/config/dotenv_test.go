package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnvUpFindsParent(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("MANDINEX_DOTENV_MARKER=found\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("MANDINEX_DOTENV_MARKER")
	})
	if err := os.Chdir(nested); err != nil {
		t.Fatal(err)
	}

	if p := LoadDotEnvUp(4); p == "" {
		t.Fatal("expected .env to be found")
	}
	if got := os.Getenv("MANDINEX_DOTENV_MARKER"); got != "found" {
		t.Fatalf("marker = %q", got)
	}
}
