package build

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/goplus/plybuild/internal/hosttools"
	"github.com/goplus/plybuild/pkgs/buildsys/cmake"
)

// mockCMake records cmake invocations instead of running them.
type mockCMake struct {
	calls [][]string
}

var _ cmake.Runner = (*mockCMake)(nil)

func (m *mockCMake) Run(_ context.Context, _ string, args, _ []string) error {
	m.calls = append(m.calls, args)
	// configure leaves a cache behind, like cmake does
	if len(args) > 3 && args[0] == "-S" {
		return os.WriteFile(filepath.Join(args[3], "CMakeCache.txt"), nil, 0o644)
	}
	return nil
}

// noTools reports every host tool as missing.
type noTools struct{}

var _ hosttools.Runner = noTools{}

func (noTools) LookPath(name string) (string, error) {
	return "", exec.ErrNotFound
}

func (noTools) Output(context.Context, string, ...string) (string, error) {
	return "", exec.ErrNotFound
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
