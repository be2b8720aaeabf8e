package utils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "postgresql://user:pw@dbhost:5433/racecoach", want: "dbhost:5433"},
		{url: "postgresql://user:pw@dbhost/racecoach", want: "dbhost:5432"},
		{url: "postgres://dbhost/racecoach?sslmode=disable", want: "dbhost:5432"},
		{url: "sqlite://racecoach.db", want: ""},
		{url: "racecoach.db", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromNatsURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "nats://localhost:4223", want: "localhost:4223"},
		{url: "nats://user:pw@broker", want: "broker:4222"},
		{url: "tls://broker:4443/", want: "broker:4443"},
		{url: "http://broker", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromNatsURL(tt.url))
		})
	}
}

func TestWaitForTCP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	ctx := context.Background()
	assert.NoError(t, WaitForTCP(ctx, l.Addr().String(), time.Second))

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := closed.Addr().String()
	closed.Close()
	assert.Error(t, WaitForTCP(ctx, addr, 300*time.Millisecond))
}
