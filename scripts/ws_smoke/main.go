package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/arhamfareed106/Social-Network-Platform/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("addr", "ws://localhost:8080", "server base address")
	room := flag.Int64("room", 1, "room id to join")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "bearer token (see `server token`)")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
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

	if err := wsjson.Write(ctx, conn, map[string]any{"type": proto.InboundTypeTyping, "is_typing": true}); err != nil {
		return fmt.Errorf("send typing: %w", err)
	}
	if err := wsjson.Write(ctx, conn, map[string]any{"type": proto.InboundTypeMessage, "message": *text}); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	for {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s username=%s", outbound.Type, outbound.Username)
		switch outbound.Type {
		case proto.OutboundTypeMessage:
			fmt.Printf(" id=%d text=%q", outbound.MessageID, outbound.Message)
			if outbound.FileURL != nil {
				fmt.Printf(" file=%s", *outbound.FileURL)
			}
		case proto.OutboundTypeStatus:
			fmt.Printf(" status=%s", outbound.Status)
		case proto.OutboundTypeTyping:
			fmt.Printf(" typing=%t", outbound.IsTyping)
		case proto.OutboundTypeReadReceipt:
			fmt.Printf(" message_id=%d", outbound.MessageID)
		}
		fmt.Println()

		if outbound.Type == proto.OutboundTypeMessage && outbound.Message == *text {
			if err := wsjson.Write(ctx, conn, map[string]any{"type": proto.InboundTypeReadReceipt, "message_id": outbound.MessageID}); err != nil {
				return fmt.Errorf("send read receipt: %w", err)
			}
		}
		if outbound.Type == proto.OutboundTypeReadReceipt {
			return nil
		}
	}
}
