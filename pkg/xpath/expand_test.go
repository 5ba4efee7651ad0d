package xpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	t.Setenv("HOME", "/home/user")

	for raw, expected := range map[string]string{
		"~":              "/home/user",
		"~/":             "/home/user",
		"~/logs/app.log": "/home/user/logs/app.log",
		"/var/log/a.log": "/var/log/a.log",
		"rel/~/path":     "rel/~/path",
		"~user/x":        "~user/x",
	} {
		p, err := Expand(raw)
		require.NoError(t, err, raw)
		require.Equal(t, expected, p, raw)
	}
}

func TestGetExecPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))
	t.Setenv("PATH", dir)

	p, err := GetExecPath("tool")
	require.NoError(t, err)
	require.Equal(t, bin, p)

	_, err = GetExecPath("no-such-tool")
	require.Error(t, err)
}
