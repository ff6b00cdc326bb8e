package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"marketplace-chat/domain/chat"
	"marketplace-chat/infrastructure/ws"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/hubs/chat"`
	Token     string `env:"CHAT_TOKEN,required=true"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the hub, prints every push and sends one message per input line:
// <recipient-id> <listing-id> <text>
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+config.Token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, header)
	if err != nil {
		if resp != nil {
			return exitRuntime, fmt.Errorf("handshake refused with status %d: %w", resp.StatusCode, err)
		}
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()
	log.Info("Connected, type '<recipient-id> <listing-id> <message>' (Ctrl+C to quit)", "url", config.ServerURL)

	readErr := make(chan error, 1)
	go func() { readErr <- receive(conn) }()
	go send(ctx, conn)

	select {
	case <-ctx.Done():
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return exitOK, nil
	case err := <-readErr:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection lost: %w", err)
	}
}

func receive(conn *websocket.Conn) error {
	for {
		var frame ws.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		now := time.Now().Format(time.TimeOnly)
		switch {
		case frame.Type == ws.FrameCompletion && frame.Error != "":
			color.Red.Printf("[%s] #%s failed: %s\n", now, frame.InvocationID, frame.Error)
		case frame.Type == ws.FrameCompletion:
			color.Gray.Printf("[%s] #%s delivered\n", now, frame.InvocationID)
		case frame.Target == chat.TargetReceiveMessage && len(frame.Arguments) == 3:
			color.Green.Printf("[%s] %s (listing %s): %s\n", now, frame.Arguments[0], frame.Arguments[2], frame.Arguments[1])
		case frame.Target == chat.TargetReceiveNotification && len(frame.Arguments) == 1:
			color.Yellow.Printf("[%s] %s\n", now, frame.Arguments[0])
		}
	}
}

func send(ctx context.Context, conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	invocation := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 3)
		if len(fields) != 3 {
			color.Red.Println("usage: <recipient-id> <listing-id> <message>")
			continue
		}
		invocation++
		err := conn.WriteJSON(ws.Frame{
			Type:         ws.FrameInvocation,
			InvocationID: strconv.Itoa(invocation),
			Target:       chat.TargetSendMessage,
			Arguments:    []string{fields[0], fields[2], fields[1]},
		})
		if err != nil {
			color.Red.Printf("send failed: %v\n", err)
			return
		}
	}
}
