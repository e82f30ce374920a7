package tests

import (
	"os"
	"path/filepath"
	"testing"
)

// CheckErr is a helper for checking an error and failing a test
func CheckErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// WriteTempFile writes content to a file named name in a fresh temporary
// directory and returns its path.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	CheckErr(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
