package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServiceRunner struct {
	calls [][]string
	err   error
}

func (f *fakeServiceRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return nil, f.err
}

func newTestService(t *testing.T, run *fakeServiceRunner) *Service {
	t.Helper()
	svc := NewService(WithRunner(run))
	svc.agentsDir = t.TempDir()
	svc.logPath = filepath.Join(t.TempDir(), "maccleanerd.log")
	return svc
}

func TestServiceInstallWritesPlist(t *testing.T) {
	run := &fakeServiceRunner{}
	svc := newTestService(t, run)

	binary := filepath.Join(t.TempDir(), "maccleanerd")
	require.NoError(t, svc.Install(context.Background(), binary))

	path, err := svc.PlistPath()
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "<string>"+ServiceLabel+"</string>")
	assert.Contains(t, content, "<string>"+binary+"</string>")
	assert.Contains(t, content, "<key>RunAtLoad</key>")
	assert.Contains(t, content, "<key>KeepAlive</key>")
	assert.Contains(t, content, "<key>SuccessfulExit</key>")

	require.NotEmpty(t, run.calls)
	last := run.calls[len(run.calls)-1]
	assert.Equal(t, []string{"launchctl", "load", "-w", path}, last)
}

func TestServiceInstallEmptyBinary(t *testing.T) {
	svc := newTestService(t, &fakeServiceRunner{})

	err := svc.Install(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binary path is empty")
}

func TestServiceInstallLoadFailure(t *testing.T) {
	run := &fakeServiceRunner{err: errors.New("boom")}
	svc := newTestService(t, run)

	err := svc.Install(context.Background(), filepath.Join(t.TempDir(), "maccleanerd"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launchctl load")
}

func TestServiceInstalled(t *testing.T) {
	svc := newTestService(t, &fakeServiceRunner{})

	installed, err := svc.Installed()
	require.NoError(t, err)
	assert.False(t, installed)

	require.NoError(t, svc.Install(context.Background(), filepath.Join(t.TempDir(), "maccleanerd")))

	installed, err = svc.Installed()
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestServiceUninstallRemovesPlist(t *testing.T) {
	run := &fakeServiceRunner{}
	svc := newTestService(t, run)

	require.NoError(t, svc.Install(context.Background(), filepath.Join(t.TempDir(), "maccleanerd")))
	require.NoError(t, svc.Uninstall(context.Background()))

	path, err := svc.PlistPath()
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	var unloaded bool
	for _, call := range run.calls {
		if len(call) > 1 && call[0] == "launchctl" && call[1] == "unload" {
			unloaded = true
		}
	}
	assert.True(t, unloaded, "uninstall must unload the job")
}

func TestServiceUninstallNotInstalled(t *testing.T) {
	svc := newTestService(t, &fakeServiceRunner{})

	err := svc.Uninstall(context.Background())
	assert.ErrorIs(t, err, ErrServiceNotInstalled)
}

func TestServicePlistRendersAbsoluteBinary(t *testing.T) {
	run := &fakeServiceRunner{}
	svc := newTestService(t, run)

	wd, err := os.Getwd()
	require.NoError(t, err)

	require.NoError(t, svc.Install(context.Background(), "maccleanerd"))

	path, err := svc.PlistPath()
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), filepath.Join(wd, "maccleanerd"))
	assert.False(t, strings.Contains(string(data), "<string>maccleanerd</string>"),
		"relative binary paths must not reach the plist")
}
