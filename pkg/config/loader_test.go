package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

type testSettings struct {
	Issuer     string        `env:"ISSUER" yaml:"issuer" required:"true"`
	Audience   string        `env:"AUDIENCE" yaml:"audience"`
	Algorithms []string      `env:"ALGORITHMS" envDefault:"RS256" yaml:"algorithms"`
	Leeway     time.Duration `env:"LEEWAY" envDefault:"30s" yaml:"leeway"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"3" yaml:"max_retries"`
	Debug      bool          `env:"DEBUG" yaml:"debug"`
}

type nestedSettings struct {
	Name string       `env:"NAME" yaml:"name"`
	JWKS jwksSettings `env:"JWKS" yaml:"jwks"`
}

type jwksSettings struct {
	URL string        `env:"URL" yaml:"url"`
	TTL time.Duration `env:"TTL" envDefault:"1h" yaml:"ttl"`
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ISSUER", "https://issuer.example.com")

	var cfg testSettings
	require.NoError(t, New().Load(&cfg))

	assert.Equal(t, []string{"RS256"}, cfg.Algorithms)
	assert.Equal(t, 30*time.Second, cfg.Leeway)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.False(t, cfg.Debug)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("ISSUER", "https://issuer.example.com")
	t.Setenv("ALGORITHMS", "RS256, ES256")
	t.Setenv("LEEWAY", "2m")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("DEBUG", "true")

	var cfg testSettings
	require.NoError(t, New().Load(&cfg))

	assert.Equal(t, "https://issuer.example.com", cfg.Issuer)
	assert.Equal(t, []string{"RS256", "ES256"}, cfg.Algorithms)
	assert.Equal(t, 2*time.Minute, cfg.Leeway)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.True(t, cfg.Debug)
}

func TestLoad_EnvPrefix(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "https://prefixed.example.com")
	t.Setenv("ISSUER", "https://unprefixed.example.com")

	var cfg testSettings
	require.NoError(t, New().WithEnvPrefix("auth").Load(&cfg))

	assert.Equal(t, "https://prefixed.example.com", cfg.Issuer)
}

func TestLoad_NestedEnv(t *testing.T) {
	t.Setenv("APP_NAME", "gateway")
	t.Setenv("APP_JWKS_URL", "https://issuer.example.com/jwks")

	var cfg nestedSettings
	require.NoError(t, New().WithEnvPrefix("APP").Load(&cfg))

	assert.Equal(t, "gateway", cfg.Name)
	assert.Equal(t, "https://issuer.example.com/jwks", cfg.JWKS.URL)
	assert.Equal(t, time.Hour, cfg.JWKS.TTL)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.yaml")
	content := []byte("issuer: https://file.example.com\naudience: my-api\nmax_retries: 7\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	var cfg testSettings
	require.NoError(t, New().WithFile(path).Load(&cfg))

	assert.Equal(t, "https://file.example.com", cfg.Issuer)
	assert.Equal(t, "my-api", cfg.Audience)
	assert.Equal(t, 7, cfg.MaxRetries)
	// Defaults still apply to untouched fields.
	assert.Equal(t, []string{"RS256"}, cfg.Algorithms)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte("issuer: https://file.example.com\n"), 0o600))

	t.Setenv("ISSUER", "https://env.example.com")

	var cfg testSettings
	require.NoError(t, New().WithFile(path).Load(&cfg))

	assert.Equal(t, "https://env.example.com", cfg.Issuer)
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	t.Setenv("ISSUER", "https://issuer.example.com")

	var cfg testSettings
	require.NoError(t, New().WithFile("/nonexistent/auth.yaml").Load(&cfg))
}

func TestLoad_FileErrors(t *testing.T) {
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("issuer: [unclosed"), 0o600))

	badExt := filepath.Join(dir, "auth.toml")
	require.NoError(t, os.WriteFile(badExt, []byte("issuer = x"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"malformed yaml", badYAML},
		{"unsupported extension", badExt},
		{"directory traversal", dir + "/../escape.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg testSettings
			err := New().WithFile(tt.path).Load(&cfg)
			require.Error(t, err)
			assert.Equal(t, acerr.CodeInternalConfiguration, acerr.GetCode(err))
		})
	}
}

func TestLoad_RequiredFields(t *testing.T) {
	var cfg testSettings
	err := New().Load(&cfg)
	require.Error(t, err)

	assert.Equal(t, acerr.CodeValidationRequired, acerr.GetCode(err))
	e, ok := acerr.AsError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Issuer"}, e.Details["fields"])
}

func TestLoad_InvalidTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  any
	}{
		{"nil", nil},
		{"non-pointer", testSettings{}},
		{"pointer to non-struct", new(int)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := New().Load(tt.cfg)
			require.Error(t, err)
			assert.Equal(t, acerr.CodeInternalConfiguration, acerr.GetCode(err))
		})
	}
}

type validatedSettings struct {
	Port int `env:"PORT" envDefault:"8080" yaml:"port"`
}

func (s *validatedSettings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return errors.New("port out of range")
	}
	return nil
}

func TestLoad_CustomValidator(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var cfg validatedSettings
		require.NoError(t, New().Load(&cfg))
		assert.Equal(t, 8080, cfg.Port)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv("PORT", "99999")

		var cfg validatedSettings
		err := New().Load(&cfg)
		require.Error(t, err)
		assert.Equal(t, acerr.CodeValidation, acerr.GetCode(err))
		assert.Contains(t, err.Error(), "port out of range")
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		t.Setenv("ISSUER", "https://issuer.example.com")
		cfg := MustLoad[testSettings](New())
		assert.Equal(t, "https://issuer.example.com", cfg.Issuer)
	})

	t.Run("panics on missing required", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad[testSettings](New())
		})
	})
}
