package mixer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// CamillaDSP mutes faders over the CamillaDSP websocket API. Fader 0 is Main,
// 1 to 4 are Aux1 to Aux4.
type CamillaDSP struct {
	url     string
	timeout time.Duration
	logger  zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewCamillaDSP validates the URL. The connection is opened on first use and
// reopened after any failure.
func NewCamillaDSP(wsURL string, timeout time.Duration, logger zerolog.Logger) (*CamillaDSP, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket URL %q: scheme must be ws or wss", wsURL)
	}

	return &CamillaDSP{
		url:     wsURL,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// connect dials if there is no live connection. Caller holds c.mu.
func (c *CamillaDSP) connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}

	conn, _, err := d.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("connect to CamillaDSP at %s: %w", c.url, err)
	}

	c.logger.Info().Str("url", c.url).Msg("connected to CamillaDSP")
	c.conn = conn

	return nil
}

// dropConn closes a broken connection. Caller holds c.mu.
func (c *CamillaDSP) dropConn() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// sendAndRead sends one command and waits for its reply.
func (c *CamillaDSP) sendAndRead(ctx context.Context, v any) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.dropConn()
		return nil, err
	}

	_ = c.conn.SetReadDeadline(deadline)
	_, message, err := c.conn.ReadMessage()
	if err != nil {
		c.dropConn()
		return nil, err
	}

	return message, nil
}

// SetMute sends SetFaderMute and checks the result.
func (c *CamillaDSP) SetMute(ctx context.Context, channel int, mute bool) error {
	cmd := map[string]any{"SetFaderMute": []any{channel, mute}}

	response, err := c.sendAndRead(ctx, cmd)
	if err != nil {
		return fmt.Errorf("set fader mute: %w", err)
	}

	var setResp struct {
		SetFaderMute struct {
			Result string `json:"result"`
		} `json:"SetFaderMute"`
	}

	if err := json.Unmarshal(response, &setResp); err != nil {
		return fmt.Errorf("parse SetFaderMute response: %w", err)
	}
	if result := setResp.SetFaderMute.Result; result != "Ok" {
		if result == "" {
			result = "unexpected response"
		}
		return fmt.Errorf("SetFaderMute fader %d: %s", channel, result)
	}

	c.logger.Debug().Int("fader", channel).Bool("mute", mute).Msg("SetFaderMute")

	return nil
}

// Close closes the websocket connection.
func (c *CamillaDSP) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropConn()

	return nil
}
