package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 30*time.Second, cfg.HTTP.TurnTimeout)
}

func TestLoad_ExplicitMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
bot: ./bots/joke
log_level: debug
strict_recognition: true
storage:
  driver: redis
  redis:
    address: localhost:6379
    ttl: 1h
    lock: true
http:
  address: ":9090"
  turn_timeout: 5s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./bots/joke", cfg.Bot)
	assert.True(t, cfg.StrictRecognition)
	assert.Equal(t, time.Hour, cfg.Storage.Redis.TTL)
	assert.True(t, cfg.Storage.Redis.Lock)
	assert.Equal(t, ":9090", cfg.HTTP.Address)
	assert.Equal(t, 5*time.Second, cfg.HTTP.TurnTimeout)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("BOTBUILDER_TEST_SECRET", "s3cret")
	path := writeConfig(t, "storage:\n  encryption_key: ${BOTBUILDER_TEST_SECRET}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Storage.EncryptionKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "storage:\n  driver: file\n")
	t.Setenv("BOTBUILDER_STORAGE", "memory")
	t.Setenv("BOTBUILDER_MAX_STEPS", "42")
	t.Setenv("BOTBUILDER_STRICT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 42, cfg.MaxSteps)
	assert.True(t, cfg.StrictRecognition)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown driver": "storage:\n  driver: mongo\n",
		"redis no addr":  "storage:\n  driver: redis\n",
		"bad level":      "log_level: loud\n",
		"negative steps": "max_steps: -1\n",
		"malformed yaml": "storage: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	t.Setenv("BOTBUILDER_MAX_STEPS", "many")
	_, err := Load(writeConfig(t, ""))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BOTBUILDER_TEST_DOTENV=from-file\n"), 0600))
	t.Setenv("BOTBUILDER_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("BOTBUILDER_TEST_DOTENV"))

	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("BOTBUILDER_TEST_DOTENV"))
}

func TestStorage_Open(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := map[string]StorageConfig{
		"memory":    {Driver: "memory"},
		"file":      {Driver: "file", Path: filepath.Join(t.TempDir(), "state")},
		"sqlite":    {Driver: "sqlite", Path: filepath.Join(t.TempDir(), "state.db")},
		"redis":     {Driver: "redis", Redis: RedisConfig{Address: mr.Addr(), Prefix: "test:", Lock: true}},
		"encrypted": {Driver: "memory", EncryptionKey: "passphrase"},
	}
	for name, sc := range tests {
		t.Run(name, func(t *testing.T) {
			b, err := sc.Open()
			require.NoError(t, err)
			defer b.Close()
			ports.RunStorageContract(t, b.Storage)
		})
	}
}

func TestStorage_LockerOnlyWhenRequested(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := StorageConfig{Driver: "redis", Redis: RedisConfig{Address: mr.Addr()}}.Open()
	require.NoError(t, err)
	defer b.Close()
	assert.Empty(t, b.SessionOptions)

	b2, err := StorageConfig{Driver: "redis", Redis: RedisConfig{Address: mr.Addr(), Lock: true, LockTTL: time.Second}}.Open()
	require.NoError(t, err)
	defer b2.Close()
	assert.Len(t, b2.SessionOptions, 2)
}

func TestStorage_KeyRotation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	ctx := context.Background()

	old, err := StorageConfig{Driver: "file", Path: dir, EncryptionKey: "first"}.Open()
	require.NoError(t, err)
	_, err = old.Storage.Write(ctx, map[string]ports.StoreItem{"k": {Value: []byte(`{"n":1}`)}})
	require.NoError(t, err)

	rotated, err := StorageConfig{Driver: "file", Path: dir, EncryptionKey: "second", PreviousKeys: []string{"first"}}.Open()
	require.NoError(t, err)
	items, err := rotated.Storage.Read(ctx, []string{"k"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(items["k"].Value))

	wrong, err := StorageConfig{Driver: "file", Path: dir, EncryptionKey: "second"}.Open()
	require.NoError(t, err)
	_, err = wrong.Storage.Read(ctx, []string{"k"})
	assert.Error(t, err)
}

func TestStorage_Masked(t *testing.T) {
	store := StorageConfig{}
	b, err := StorageConfig{Driver: "memory"}.Open()
	require.NoError(t, err)

	same, err := store.Masked(b.Storage)
	require.NoError(t, err)
	assert.Same(t, b.Storage, same)

	_, err = StorageConfig{MaskKeys: []string{"("}}.Masked(b.Storage)
	assert.Error(t, err)

	masked, err := StorageConfig{MaskKeys: []string{"email"}}.Masked(b.Storage)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = masked.Write(ctx, map[string]ports.StoreItem{"u": {Value: []byte(`{"email":"a@b.c"}`)}})
	require.NoError(t, err)
	items, err := masked.Read(ctx, []string{"u"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"***"}`, string(items["u"].Value))
}
