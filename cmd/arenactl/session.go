package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/term"
)

type outFrame struct {
	ID    uint64          `json:"id"`
	Route string          `json:"route"`
	Body  json.RawMessage `json:"body,omitempty"`
}

func commandSession(args []string) error {
	cfg, err := requireLogin()
	if err != nil {
		return err
	}
	target, err := sessionURL(cfg.ServerURL, cfg.SessionToken)
	if err != nil {
		return err
	}
	conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("open session: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("open session: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Printf("\n< %s\n", data)
		}
	}()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	scanner := bufio.NewScanner(os.Stdin)
	var next uint64
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		next++
		frame, err := parseLine(next, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if err := conn.WriteJSON(frame); err != nil {
			return err
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	<-done
	return scanner.Err()
}

func sessionURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/area"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// parseLine turns "<route> [json]" into a request frame. Routes without a
// namespace are assumed to be team operations.
func parseLine(id uint64, line string) (outFrame, error) {
	route, body, _ := strings.Cut(line, " ")
	if !strings.Contains(route, ".") {
		route = "team." + route
	}
	f := outFrame{ID: id, Route: route}
	body = strings.TrimSpace(body)
	if body != "" {
		if !json.Valid([]byte(body)) {
			return outFrame{}, errors.New("body is not valid JSON")
		}
		f.Body = json.RawMessage(body)
	}
	return f, nil
}
