// Package main provides a CLI for live voice conversations.
//
// Usage:
//
//	go run ./cmd/murmur
//
// Environment variables:
//
//	GEMINI_API_KEY - Required for --backend gemini (the default)
//
// Controls:
//
//	/t <text>   - Send text message
//	q           - Quit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/murmurlabs/murmur/pkg/core/live"
	"github.com/murmurlabs/murmur/pkg/core/remote"
	"github.com/murmurlabs/murmur/pkg/device"
)

func main() {
	_ = godotenv.Load()

	var (
		backend    = flag.String("backend", "gemini", "Remote backend: gemini or gateway")
		model      = flag.String("model", "", "Model override (default per backend)")
		voice      = flag.String("voice", "", "Voice override")
		gatewayURL = flag.String("gateway", "", "Gateway websocket URL (required for --backend gateway)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	cfg := live.DefaultSessionConfig()
	if *model != "" {
		cfg.Model = *model
	}
	if *voice != "" {
		cfg.Voice = *voice
	}

	dialer, err := buildDialer(*backend, *gatewayURL)
	if err != nil {
		log.Fatal(err)
	}

	devices, err := device.Open()
	if err != nil {
		log.Fatalf("Failed to init audio: %v", err)
	}
	defer devices.Close()

	ctrl := live.NewSessionController(cfg, dialer, devices)
	if *debug {
		ctrl.EnableDebug()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
		ctrl.Disconnect()
		os.Exit(0)
	}()

	fmt.Println("Murmur live voice session")
	fmt.Println("  Speak naturally; the assistant stops when you barge in.")
	fmt.Println("  Commands: /t <text>, q")
	fmt.Println()

	go printEvents(ctrl)

	if err := ctrl.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer ctrl.Disconnect()

	fmt.Println("Listening... (type commands or 'q' to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.ToLower(input) == "q" {
			break
		}

		if strings.HasPrefix(input, "/t ") {
			text := strings.TrimSpace(strings.TrimPrefix(input, "/t "))
			ctrl.SendText(text)
			continue
		}

		fmt.Println("[INFO] Commands: /t <text>, q")
	}
}

func buildDialer(backend, gatewayURL string) (remote.Dialer, error) {
	switch backend {
	case "gemini":
		apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY required for --backend gemini")
		}
		return &remote.GeminiDialer{APIKey: apiKey}, nil
	case "gateway":
		if strings.TrimSpace(gatewayURL) == "" {
			return nil, fmt.Errorf("--gateway URL required for --backend gateway")
		}
		return &remote.GatewayDialer{
			URL:    gatewayURL,
			APIKey: strings.TrimSpace(os.Getenv("MURMUR_GATEWAY_API_KEY")),
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want gemini or gateway)", backend)
	}
}

func printEvents(ctrl *live.SessionController) {
	for event := range ctrl.Events() {
		switch e := event.(type) {
		case *live.MessageAppendedEvent:
			fmt.Printf("[%s] %s\n", e.Message.Role, e.Message.Text)
		case *live.UserTalkingEvent:
			if e.Talking {
				fmt.Println("(you're talking)")
			}
		case *live.PlaybackInterruptedEvent:
			fmt.Println("(interrupted)")
		case *live.StateChangedEvent:
			fmt.Printf("(session %s)\n", strings.ToLower(e.To.String()))
		case *live.ErrorEvent:
			fmt.Printf("[ERROR] %s\n", e.Err)
		}
	}
}
