package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

func TestNewConfigValidator(t *testing.T) {
	assert.NotNil(t, NewConfigValidator())
}

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.AIConfigValidator = NewConfigValidator()
}

func TestConfigValidator_ValidateBaseURL(t *testing.T) {
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateBaseURL("http://127.0.0.1:11434"))

	err := v.ValidateBaseURL("http://10.0.0.5:11434")
	assert.Equal(t, domain.CodeRemoteNotAllowed, domain.CodeOf(err))
}

func TestConfigValidator_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, NewConfigValidator().Ping(context.Background(), testSettings(server.URL)))
}
