package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInit_YAML(t *testing.T) {
	path := writeFile(t, `
http:
  addr: ":9000"
  success_location: "/thanks"
db:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/q"
cache:
  ttl: 15m
reqs:
  submit_req_type: "req.submit"
template:
  path: "templates/initial.yaml"
submission:
  sanitize: false
`)

	cfg, err := Init(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "/thanks", cfg.HTTP.SuccessLocation)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "req.submit", cfg.Reqs.SubmitRequestType)
	assert.Equal(t, "templates/initial.yaml", cfg.Template.Path)
	assert.False(t, cfg.Submission.Sanitize)

	// untouched sections keep their defaults
	assert.Equal(t, Default().Exchange, cfg.Exchange)
}

func TestInit_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, `
http:
  success_location: "/from-yaml"
`)
	t.Setenv("HTTP_SUCCESS_LOCATION", "/from-env")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Init(path)
	require.NoError(t, err)

	assert.Equal(t, "/from-env", cfg.HTTP.SuccessLocation)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestInit_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Init(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestInit_Errors(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Init(writeFile(t, "http: [unclosed"))
		assert.ErrorContains(t, err, "decode error")
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Init(writeFile(t, "db:\n  driver: oracle\n"))
		assert.ErrorContains(t, err, "unsupported db driver")
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("CACHE_TTL", "forever")
		_, err := Init("")
		assert.ErrorContains(t, err, "parse env")
	})
}
