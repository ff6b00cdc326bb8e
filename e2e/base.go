package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"marketplace-chat/auth"
	"marketplace-chat/infrastructure/ws"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseSuite struct {
	suite.Suite
	Config Config
	client *http.Client
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.HTTPAddr == "" {
		s.T().Skip("HUB_HTTP_ADDR is not set, skipping end-to-end suite")
	}
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *BaseSuite) step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Register creates a fresh account and returns its session.
func (s *BaseSuite) Register(name string) auth.Session {
	s.step(name)
	body, err := json.Marshal(map[string]string{
		"email":    fmt.Sprintf("e2e-%s@example.com", uuid.NewString()[:8]),
		"password": "E2e-Password-123!",
	})
	s.Require().NoError(err)

	resp, err := s.client.Post(s.Config.HTTPAddr+"/api/auth/register", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var session auth.Session
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&session))
	return session
}

// Get calls an authenticated REST endpoint and decodes the JSON answer into out.
func (s *BaseSuite) Get(session auth.Session, path string, out any) int {
	req, err := http.NewRequest(http.MethodGet, s.Config.HTTPAddr+path, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// Dial opens a hub connection for the session.
func (s *BaseSuite) Dial(name string, session auth.Session) *websocket.Conn {
	s.step(name)
	url := "ws" + strings.TrimPrefix(s.Config.HTTPAddr, "http") + "/hubs/chat"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+session.Token)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	s.Require().NoError(err, "Failed to open hub connection at "+url)

	// The server answers invocations only once the connection is registered
	s.Require().NoError(conn.WriteJSON(ws.Frame{Type: ws.FrameInvocation, InvocationID: "sync", Target: "Sync"}))
	s.Require().Equal("sync", s.Next(conn).InvocationID)
	return conn
}

// Next reads the next frame or fails after the timeout.
func (s *BaseSuite) Next(conn *websocket.Conn) ws.Frame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var frame ws.Frame
	s.Require().NoError(conn.ReadJSON(&frame))
	return frame
}

// GrpcConn initializes a gRPC connection with logging, colors, and JSON debugging
func (s *BaseSuite) GrpcConn(t *testing.T, name string, addr string) *grpc.ClientConn {
	s.step(name)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))

			// Log full JSON request/response bodies if E2E_DEBUG_JSON is enabled
			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}

// WithHealth provides a health client within a contextual test step
func (s *BaseSuite) WithHealth(name string, fn func(ctx context.Context, client healthpb.HealthClient)) {
	conn := s.GrpcConn(s.T(), name, s.Config.GrpcAddr)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fn(ctx, healthpb.NewHealthClient(conn))
}
