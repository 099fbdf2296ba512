package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultFFmpegBin, cfg.FFmpegBin)
	assert.Equal(t, DefaultFFprobeBin, cfg.FFprobeBin)
	assert.Equal(t, DefaultConvertTimeout, cfg.ConvertTimeout)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Zero(t, cfg.ThrottleFreeMem)
	assert.Zero(t, cfg.ThrottleFreeDisk)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MC_FFMPEG_BIN", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("MC_CONVERT_TIMEOUT", "45m")
	t.Setenv("MC_THROTTLE_FREEMEM", "512MB")
	t.Setenv("MC_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.FFmpegBin)
	assert.Equal(t, 45*time.Minute, cfg.ConvertTimeout)
	assert.Equal(t, uint64(512*1024*1024), cfg.ThrottleFreeMem)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("MC_CONVERT_TIMEOUT", "not-a-duration")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultOutputPath(t *testing.T) {
	cfg := &Config{}

	out := cfg.DefaultOutputPath("/videos/clip.flv", ".mp4")
	assert.Equal(t, "/videos", filepath.Dir(out))
	assert.True(t, strings.HasPrefix(filepath.Base(out), "clip-"))
	assert.Equal(t, ".mp4", filepath.Ext(out))

	// Two derived names never collide
	assert.NotEqual(t, out, cfg.DefaultOutputPath("/videos/clip.flv", ".mp4"))
}

func TestDefaultOutputPath_OutputDir(t *testing.T) {
	cfg := &Config{OutputDir: "/converted"}

	out := cfg.DefaultOutputPath("/videos/clip.flv", "")
	assert.Equal(t, "/converted", filepath.Dir(out))
	assert.Equal(t, DefaultOutputExt, filepath.Ext(out))
}
