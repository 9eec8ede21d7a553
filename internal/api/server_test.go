package api

import (
	"context"
	"net"
	"testing"
	"time"

	"rentdapp/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func startGRPC(t *testing.T, cfg config.APIConfig) (*GRPCServer, healthpb.HealthClient) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := zerolog.Nop()
	srv := newGRPCServer(cfg, lis, &logger)
	go func() { _ = srv.Serve() }()

	conn, err := grpc.NewClient(srv.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, healthpb.NewHealthClient(conn)
}

func TestGRPCHealth(t *testing.T) {
	srv, client := startGRPC(t, config.APIConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	srv.SetServing(true)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestGRPCAuth(t *testing.T) {
	_, client := startGRPC(t, config.APIConfig{Auth: config.APIAuthConfig{
		Enabled: true,
		APIKeys: []config.APIClientKey{
			{Key: "reader", Permissions: []string{permReadState}},
			{Key: "payer", Permissions: []string{permPayment}},
		},
	}})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	payer := metadata.AppendToOutgoingContext(ctx, apiKeyHeaderDefault, "payer")
	_, err = client.Check(payer, &healthpb.HealthCheckRequest{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	reader := metadata.AppendToOutgoingContext(ctx, apiKeyHeaderDefault, "reader", requestIDKey, "req-1")
	_, err = client.Check(reader, &healthpb.HealthCheckRequest{})
	assert.NoError(t, err)
}

func TestRequestIDFromHeader(t *testing.T) {
	assert.Equal(t, "abc", requestIDFromHeader("abc"))
	assert.NotEmpty(t, requestIDFromHeader(""))
}
