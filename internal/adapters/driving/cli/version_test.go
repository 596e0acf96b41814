package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"v0.3.1", "qir-evidence version v0.3.1\n"},
		{"dev", "qir-evidence version dev\n"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			original := version
			version = tt.version
			defer func() { version = original }()

			out, err := runCmd(t, "version")

			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestVersionCmd_SkipsWiring(t *testing.T) {
	assert.True(t, hasAnnotation(versionCmd, skipWireAnnotation))
}
