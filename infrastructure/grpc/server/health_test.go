package server

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthServer_Reports_Hub_Status(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	listener := bufconn.Listen(1024 * 1024)
	server := NewHealthServer(log)
	go func() { _ = server.Serve(listener) }()
	defer server.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	req.NoError(err)
	defer func() { _ = conn.Close() }()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HubServiceName})
		req.NoError(err)
		return resp.GetStatus()
	}

	// Given a freshly started server the hub is not serving yet
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check())

	// When the hub starts accepting connections
	server.SetServing(true)
	req.Equal(healthpb.HealthCheckResponse_SERVING, check())

	// Then shutting down flips it back
	server.SetServing(false)
	req.Equal(healthpb.HealthCheckResponse_NOT_SERVING, check())
}
