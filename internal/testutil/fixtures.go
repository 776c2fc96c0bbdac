// Package testutil provides fixtures shared by heapwalker tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GetTestDataPath returns the path of a file in the nearest testdata directory,
// searching from the caller's directory upwards.
func GetTestDataPath(t *testing.T, filename string) string {
	t.Helper()
	return testDataPath(t, 2, filename)
}

func testDataPath(t *testing.T, skip int, filename string) string {
	t.Helper()

	_, callerFile, _, ok := runtime.Caller(skip)
	if !ok {
		t.Fatal("failed to get caller file path")
	}

	dir := filepath.Dir(callerFile)
	for i := 0; i < 5; i++ {
		testdataPath := filepath.Join(dir, "testdata", filename)
		if _, err := os.Stat(testdataPath); err == nil {
			return testdataPath
		}
		dir = filepath.Dir(dir)
	}

	return filepath.Join("testdata", filename)
}

// LoadFixture loads a testdata file.
func LoadFixture(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(testDataPath(t, 2, filename))
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", filename, err)
	}
	return data
}

// WriteFile writes content to a file in dir and returns its path.
func WriteFile(t *testing.T, dir, filename string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}
