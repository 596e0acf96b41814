package mcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil evidence service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingEvidenceService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Evidence: &mockEvidenceService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil evidence service returns error", func(t *testing.T) {
		ports := &Ports{Retrieval: &mockRetrievalService{}}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingEvidenceService)
	})

	t.Run("evidence only is valid", func(t *testing.T) {
		ports := &Ports{
			Evidence: &mockEvidenceService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Evidence:  &mockEvidenceService{},
			Retrieval: &mockRetrievalService{},
			Index:     &mockIndexService{},
			Draft:     &mockDraftService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

func TestLoopbackAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", LoopbackAddr(8080))
	assert.Equal(t, "127.0.0.1:0", LoopbackAddr(0))
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Evidence: &mockEvidenceService{}})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", LoopbackAddr(0))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
