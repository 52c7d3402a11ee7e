package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// eventEnvelope mirrors the daemon's IPC wire format. Payloads are built as
// plain maps so this binary stays independent of the daemon's types.
type eventEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ipcResponse represents the daemon's response
type ipcResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const requestTimeout = 5 * time.Second

// sendEvent sends one envelope over the Unix socket and checks the response.
func sendEvent(socketPath, typ string, data any) error {
	conn, err := net.DialTimeout("unix", socketPath, requestTimeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	line, err := json.Marshal(eventEnvelope{Type: typ, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var resp ipcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	return nil
}

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(addr string) *apiClient {
	base := addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: requestTimeout},
	}
}

func (c *apiClient) do(method, path string, body []byte) ([]byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e ipcResponse
		if json.Unmarshal(out, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("daemon error (%d): %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("daemon error: %s", resp.Status)
	}
	return out, nil
}

func (c *apiClient) get(path string) ([]byte, error) { return c.do(http.MethodGet, path, nil) }

func (c *apiClient) post(path string, body []byte) ([]byte, error) {
	return c.do(http.MethodPost, path, body)
}

func (c *apiClient) wsURL() (string, error) {
	u, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String(), nil
}

// watch prints every websocket frame as one JSON line until interrupted.
func (c *apiClient) watch(w io.Writer) error {
	target, err := c.wsURL()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := websocket.Dialer{HandshakeTimeout: requestTimeout}
	conn, _, err := d.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", target, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", bytes.TrimSpace(msg)); err != nil {
			return err
		}
	}
}
