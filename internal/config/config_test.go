package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ImportFixer/internal/domain"
)

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
database:
  dsn: postgres://file/db
site:
  url: https://file.example.org
  permalinkStructure: /%year%/%postname%/
probe:
  timeout: 3s
fixers:
  metaKey: _legacy_url
  postTypes: [post, page]
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(uploadBaseURLEnv, "https://cdn.example.org/uploads/")
	t.Setenv(logLevelEnv, "debug")

	cfg := Load()

	require.Equal(t, "postgres://file/db", cfg.Database.DSN)
	require.Equal(t, "https://file.example.org", cfg.Site.URL)
	require.Equal(t, "https://cdn.example.org/uploads/", cfg.Site.UploadBaseURL)
	require.Equal(t, "/%year%/%postname%/", cfg.Site.PermalinkStructure)
	require.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	require.Equal(t, "ImportFixer/1.0", cfg.Probe.UserAgent)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "_legacy_url", cfg.Fixers.MetaKey)
	require.Equal(t, []string{"post", "page"}, cfg.Fixers.PostTypes)
}

func TestLoadFallsBackOnBadFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	require.Equal(t, defaultConfig().Database.DSN, cfg.Database.DSN)
	require.Equal(t, DefaultMetaKey, cfg.Fixers.MetaKey)
}

func TestRunConfigNormalizeAndValidate(t *testing.T) {
	t.Parallel()

	after := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	before := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		run     RunConfig
		wantErr bool
	}{
		{name: "valid defaults", run: RunConfig{User: "admin"}},
		{name: "missing user", run: RunConfig{}, wantErr: true},
		{name: "negative page size", run: RunConfig{User: "admin", PageSize: -1}, wantErr: true},
		{name: "unknown replace target", run: RunConfig{User: "admin", ReplaceWith: "guid"}, wantErr: true},
		{name: "inverted dates", run: RunConfig{User: "admin", After: &after, Before: &before}, wantErr: true},
		{name: "meta key sanitised to empty", run: RunConfig{User: "admin", MetaKey: "!!!"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.run.Normalize(FixerDefaults{}).Validate()
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidRunConfig)
				return
			}
			require.NoError(t, err)
		})
	}

	run := RunConfig{User: " admin ", MetaKey: "_Original URL"}.Normalize(FixerDefaults{PostTypes: []string{"post"}})
	require.Equal(t, "admin", run.User)
	require.Equal(t, "_originalurl", run.MetaKey)
	require.Equal(t, []string{"post"}, run.PostTypes)
	require.Equal(t, domain.ReplaceWithPermalink, run.ReplaceWith)
}

func TestOldDomainHost(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"old.example.com":              "old.example.com",
		"https://Old.Example.com/path": "old.example.com",
		"//old.example.com":            "old.example.com",
		"old.example.com:8080":         "old.example.com",
	} {
		got, err := OldDomainHost(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := OldDomainHost("  ")
	require.ErrorIs(t, err, ErrInvalidRunConfig)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	none, err := ParseDate("", false)
	require.NoError(t, err)
	require.Nil(t, none)

	day, err := ParseDate("2019-05-01", true)
	require.NoError(t, err)
	require.Equal(t, time.Date(2019, 5, 1, 23, 59, 59, 999999999, time.UTC), *day)

	ts, err := ParseDate("2019-05-01T10:00:00Z", true)
	require.NoError(t, err)
	require.Equal(t, time.Date(2019, 5, 1, 10, 0, 0, 0, time.UTC), *ts)

	_, err = ParseDate("May 1st", false)
	require.ErrorIs(t, err, ErrInvalidRunConfig)
}
