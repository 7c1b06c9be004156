package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/arhamfareed106/Social-Network-Platform/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("addr", "ws://localhost:8080", "server base address")
	room := flag.Int64("room", 1, "room id to join")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "bearer token (see `server token`)")
	flag.Parse()

	if *token == "" {
		return errors.New("token is required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	endpoint := fmt.Sprintf("%s/ws/chat/%d?token=%s", *base, *room, url.QueryEscape(*token))
	conn, resp, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to room %d\n", *room)
	fmt.Println("Type messages and press Enter to send. /file PATH attaches a file, /read ID sends a read receipt. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch outbound.Type {
		case proto.OutboundTypeMessage:
			line := fmt.Sprintf("[#%d %s] %s: %s", outbound.MessageID, outbound.Timestamp, outbound.Username, outbound.Message)
			if outbound.FileURL != nil {
				line += " (file: " + *outbound.FileURL + ")"
			}
			fmt.Println(line)
		case proto.OutboundTypeTyping:
			if outbound.IsTyping {
				fmt.Printf("%s is typing...\n", outbound.Username)
			}
		case proto.OutboundTypeStatus:
			fmt.Printf("%s is %s\n", outbound.Username, outbound.Status)
		case proto.OutboundTypeReadReceipt:
			fmt.Printf("%s read #%d\n", outbound.Username, outbound.MessageID)
		default:
			fmt.Printf("type=%s %+v\n", outbound.Type, outbound)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			frame, err := buildFrame(text)
			if err != nil {
				log.Printf("%v", err)
				continue
			}
			if err := wsjson.Write(ctx, conn, frame); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

func buildFrame(text string) (map[string]any, error) {
	switch {
	case strings.HasPrefix(text, "/read "):
		id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(text, "/read ")), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid message id: %w", err)
		}
		return map[string]any{"type": proto.InboundTypeReadReceipt, "message_id": id}, nil
	case strings.HasPrefix(text, "/file "):
		path := strings.TrimSpace(strings.TrimPrefix(text, "/file "))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return map[string]any{
			"type":    proto.InboundTypeMessage,
			"message": "",
			"file": proto.File{
				Name:    filepath.Base(path),
				Content: base64.StdEncoding.EncodeToString(data),
			},
		}, nil
	default:
		return map[string]any{"type": proto.InboundTypeMessage, "message": text}, nil
	}
}
