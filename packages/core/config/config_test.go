package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	hchttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30000, cfg.Timeout)
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, 64, cfg.MaxConcurrent)
	assert.False(t, cfg.GetVerbose())
	assert.True(t, cfg.IsDefault())
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hitcall.config.json", `{
		"timeout": 5000,
		"followRedirects": false,
		"headers": {"X-App": "demo"},
		"rateLimit": 2.5,
		"journal": "calls.db"
	}`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.Equal(t, map[string]string{"X-App": "demo"}, cfg.Headers)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, "calls.db", cfg.Journal)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.False(t, cfg.IsDefault())
}

func TestFindAndLoadConfig_YAMLWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hitcall.yml", `
timeout: 1500
maxConcurrent: 4
validateSSL: false
headers:
  Authorization: "Bearer {{$HITCALL_TEST_TOKEN}}"
  X-Region: "{{region}}"
`)
	writeFile(t, dir, ".env", "HITCALL_TEST_TOKEN=abc\nregion=eu-west\n")

	cfg, err := FindAndLoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, 1500, cfg.Timeout)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.False(t, cfg.GetValidateSSL())
	assert.Equal(t, "Bearer abc", cfg.Headers["Authorization"])
	assert.Equal(t, "eu-west", cfg.Headers["X-Region"])
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())

	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.json", `{"timeout": "soon"}`)
	_, err = LoadConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1", "B": "2"}

	merged := base.Merge(&Config{
		Timeout:     100,
		ValidateSSL: BoolPtr(false),
		Headers:     map[string]string{"B": "3"},
		Journal:     "x.db",
	})

	assert.Equal(t, 100, merged.Timeout)
	assert.False(t, merged.GetValidateSSL())
	assert.True(t, merged.GetFollowRedirects())
	assert.Equal(t, map[string]string{"A": "1", "B": "3"}, merged.Headers)
	assert.Equal(t, "x.db", merged.Journal)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, base.Headers, "base must not change")
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Headers = map[string]string{"User-Agent": "hitcall"}

	for _, name := range []string{"hitcall.config.json", ".hitcall.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, cfg.SaveConfig(path))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestClientOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "demo", r.Header.Get("X-App"))
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	cfg := DefaultConfig().Merge(&Config{
		FollowRedirects: BoolPtr(false),
		Headers:         map[string]string{"X-App": "demo"},
		RateLimit:       100,
	})
	client := hchttp.NewClient(cfg.ClientOptions()...)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hitcall.config.json", `{"timeout": 1000}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *Config, 4)
	errs := make(chan error, 1)
	go func() {
		errs <- Watch(ctx, path, func(cfg *Config, err error) {
			if err == nil {
				updates <- cfg
			}
		})
	}()

	// let the watcher register before writing
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "unrelated.json", `{}`)
	writeFile(t, dir, "hitcall.config.json", `{"timeout": 2000}`)

	select {
	case cfg := <-updates:
		assert.Equal(t, 2000, cfg.Timeout)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}

	cancel()
	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	_, ok := FindConfigFile(dir)
	assert.False(t, ok)

	writeFile(t, dir, ".hitcall.yaml", "timeout: 1\n")
	writeFile(t, dir, "hitcall.config.json", `{"timeout": 2}`)

	path, ok := FindConfigFile(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "hitcall.config.json"), path)
}
