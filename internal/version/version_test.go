package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func restoreVars(t *testing.T) {
	t.Helper()
	v, r, b := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = v, r, b
	})
}

func TestVersionStrings(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.NotEmpty(t, Revision)

	assert.Contains(t, Short(), Version)
	assert.Contains(t, Short(), Revision)
	assert.True(t, strings.HasPrefix(ShortWithApp(), "Revenda Backoffice "))
	assert.Contains(t, Detailed(), "/")
	assert.True(t, strings.HasPrefix(DetailedWithApp(), AppName+" "))
}

func TestApplyBuildInfo(t *testing.T) {
	tests := []struct {
		name                           string
		version, revision, buildDate   string
		mainVersion                    string
		settings                       map[string]string
		wantVersion, wantRev, wantDate string
	}{
		{
			name:        "fills-defaults",
			version:     devVersion,
			revision:    "HEAD",
			mainVersion: "v1.4.0",
			settings: map[string]string{
				"vcs.revision": "abcdef1234567890",
				"vcs.modified": "true",
				"vcs.time":     "2026-10-01T09:00:00Z",
			},
			wantVersion: "1.4.0",
			wantRev:     "abcdef123456-dirty",
			wantDate:    "2026-10-01T09:00:00Z",
		},
		{
			name:        "devel-build-keeps-placeholder",
			version:     devVersion,
			revision:    "HEAD",
			mainVersion: "(devel)",
			settings:    map[string]string{},
			wantVersion: devVersion,
			wantRev:     "HEAD",
		},
		{
			name:        "ldflags-win",
			version:     "2.0.0",
			revision:    "deadbeef",
			buildDate:   "from-ldflags",
			mainVersion: "v9.9.9",
			settings: map[string]string{
				"vcs.revision": "abcdef",
				"vcs.time":     "2026-10-01T09:00:00Z",
			},
			wantVersion: "2.0.0",
			wantRev:     "deadbeef",
			wantDate:    "from-ldflags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreVars(t)
			Version, Revision, BuildDate = tt.version, tt.revision, tt.buildDate

			applyBuildInfo(tt.mainVersion, tt.settings)

			assert.Equal(t, tt.wantVersion, Version)
			assert.Equal(t, tt.wantRev, Revision)
			assert.Equal(t, tt.wantDate, BuildDate)
		})
	}
}
