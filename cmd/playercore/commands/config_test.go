package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/playercore/pkg/player/types"
)

func TestReadConfigFromPath(t *testing.T) {
	ctx := context.Background()
	cfgPath := filepath.Join(t.TempDir(), "playercore.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
backend: dummy
player:
  title: test
  custom_render: true
aspect_ratio: "16:9"
adjustments:
  brightness: 0.5
dummy:
  simulate: true
  frame_rate: 10
snapshot:
  dir: /tmp/snapshots
  every: 5
`), 0640))

	cfg, err := ReadConfigFromPath(ctx, cfgPath)
	require.NoError(t, err)
	require.Equal(t, types.BackendDummy, cfg.Backend)
	require.Equal(t, "test", cfg.Player.Title)
	require.True(t, cfg.Player.CustomRender)
	require.Equal(t, 640, cfg.Player.DefaultVideoWidth, "defaults are kept")
	require.Equal(t, "16:9", cfg.AspectRatio)
	require.Equal(t, 0.5, cfg.Adjustments.Brightness)
	require.Equal(t, 10.0, cfg.Dummy.FrameRate)
	require.Equal(t, time.Minute, cfg.Dummy.MediaLength)
	require.NotNil(t, cfg.Snapshot)
	require.Equal(t, "/tmp/snapshots", cfg.Snapshot.Dir)
	require.Equal(t, uint64(5), cfg.Snapshot.Every)
	require.Equal(t, 640, cfg.Snapshot.Width, "snapshot defaults are kept")
}

func TestConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(ctx)
	cfg.Backend = types.BackendDummy

	var buf bytes.Buffer
	_, err := cfg.WriteTo(&buf)
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "playercore.yaml")
	require.NoError(t, os.WriteFile(cfgPath, buf.Bytes(), 0640))
	cfgRead, err := ReadConfigFromPath(ctx, cfgPath)
	require.NoError(t, err)
	require.Equal(t, cfg, cfgRead)
}

func TestReadConfigFromPathMissing(t *testing.T) {
	_, err := ReadConfigFromPath(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
