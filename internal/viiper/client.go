package viiper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
)

// Config controls dialing, timeouts and authentication.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Client talks to one VIIPER API server.
//
// Request framing: `<path>[ SP <payload>] \x00`. The server answers with a
// single JSON line (or a problem+json error) and closes the connection.
// Stream connections send the device path and then stay open for input.
type Client struct {
	addr   string
	cfg    Config
	logger *slog.Logger
}

// New returns a client for addr (host:port). A nil cfg uses defaults.
func New(addr string, cfg *Config, logger *slog.Logger) *Client {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{addr: addr, cfg: c, logger: logger}
}

// dial connects and, when a password is configured, authenticates.
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			c.logger.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if c.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if c.cfg.Password == "" {
		return conn, nil
	}
	secure, err := authenticate(conn, c.cfg.Password)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return secure, nil
}

// do sends one request and returns the response line without its newline.
func (c *Client) do(ctx context.Context, path, payload string) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	req := strings.ToLower(path)
	if payload != "" {
		req += " " + payload
	}
	if _, err := conn.Write(append([]byte(req), '\x00')); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if c.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

// BusList returns the active bus numbers.
func (c *Client) BusList(ctx context.Context) (*BusListResponse, error) {
	raw, err := c.do(ctx, "bus/list", "")
	if err != nil {
		return nil, err
	}
	return parse[BusListResponse](raw)
}

// BusCreate creates the virtual bus busID.
func (c *Client) BusCreate(ctx context.Context, busID uint32) (*BusCreateResponse, error) {
	raw, err := c.do(ctx, "bus/create", fmt.Sprintf("%d", busID))
	if err != nil {
		return nil, err
	}
	return parse[BusCreateResponse](raw)
}

// BusRemove removes a bus and every device on it.
func (c *Client) BusRemove(ctx context.Context, busID uint32) (*BusRemoveResponse, error) {
	raw, err := c.do(ctx, "bus/remove", fmt.Sprintf("%d", busID))
	if err != nil {
		return nil, err
	}
	return parse[BusRemoveResponse](raw)
}

// DeviceAdd plugs a new device of devType into bus busID.
func (c *Client) DeviceAdd(ctx context.Context, busID uint32, devType string) (*Device, error) {
	payload, err := json.Marshal(DeviceCreateRequest{Type: &devType})
	if err != nil {
		return nil, fmt.Errorf("marshal device create request: %w", err)
	}
	raw, err := c.do(ctx, fmt.Sprintf("bus/%d/add", busID), string(payload))
	if err != nil {
		return nil, err
	}
	return parse[Device](raw)
}

// DeviceRemove unplugs device devID from bus busID.
func (c *Client) DeviceRemove(ctx context.Context, busID uint32, devID string) (*DeviceRemoveResponse, error) {
	raw, err := c.do(ctx, fmt.Sprintf("bus/%d/remove", busID), devID)
	if err != nil {
		return nil, err
	}
	return parse[DeviceRemoveResponse](raw)
}

// OpenStream connects to the input stream of an existing device. Writes on
// the returned connection are device input in the device's wire format.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (net.Conn, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(conn, "bus/%d/%s\x00", busID, devID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	// Write deadlines from dial only cover the request.
	_ = conn.SetWriteDeadline(time.Time{})
	return conn, nil
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, problem
	}
	var out T
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
