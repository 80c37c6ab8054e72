package viiper

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"
)

// fakeServer accepts connections and answers each request line with the
// response registered for its path. With a password set it performs the
// server side of the handshake first.
type fakeServer struct {
	ln        net.Listener
	password  string
	responses map[string]string
	requests  chan string
	streams   chan []byte
}

func newFakeServer(t *testing.T, password string, responses map[string]string) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{
		ln:        ln,
		password:  password,
		responses: responses,
		requests:  make(chan string, 16),
		streams:   make(chan []byte, 16),
	}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve(t)
	return s
}

func (s *fakeServer) addr() string { return s.ln.Addr().String() }

func (s *fakeServer) serve(t *testing.T) {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(t, c)
	}
}

func (s *fakeServer) handle(t *testing.T, c net.Conn) {
	defer c.Close()
	var conn net.Conn = c
	if s.password != "" {
		secure, err := s.handshake(c)
		if err != nil {
			_, _ = io.WriteString(c, `{"status":401,"title":"Unauthorized","detail":"invalid password"}`+"\n")
			return
		}
		conn = secure
	}

	r := bufio.NewReader(conn)
	req, err := r.ReadString('\x00')
	if err != nil {
		return
	}
	req = strings.TrimSuffix(req, "\x00")
	s.requests <- req

	path, _, _ := strings.Cut(req, " ")
	if resp, ok := s.responses[path]; ok {
		_, _ = io.WriteString(conn, resp+"\n")
		return
	}
	// anything else is a device stream
	data, _ := io.ReadAll(r)
	s.streams <- data
}

func (s *fakeServer) handshake(c net.Conn) (net.Conn, error) {
	key, err := DeriveKey(s.password)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(handshakeMagic)+nonceSize+sha256.Size)
	if _, err := io.ReadFull(c, buf); err != nil {
		return nil, err
	}
	clientNonce := buf[len(handshakeMagic) : len(handshakeMagic)+nonceSize]
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(authContext))
	mac.Write(clientNonce)
	if !hmac.Equal(mac.Sum(nil), buf[len(handshakeMagic)+nonceSize:]) {
		return nil, io.ErrUnexpectedEOF
	}
	serverNonce := make([]byte, nonceSize)
	for i := range serverNonce {
		serverNonce[i] = byte(i)
	}
	if _, err := c.Write(append([]byte(handshakeOK), serverNonce...)); err != nil {
		return nil, err
	}
	return newSecureConn(c, c, deriveSessionKey(key, serverNonce, clientNonce))
}

func TestClientRequests(t *testing.T) {
	srv := newFakeServer(t, "", map[string]string{
		"bus/list":   `{"buses":[3]}`,
		"bus/create": `{"busId":7}`,
		"bus/7/add":  `{"busId":7,"devId":"1","vid":"0x2e8a","pid":"0x0010","type":"keyboard"}`,
	})
	c := New(srv.addr(), nil, nil)
	ctx := context.Background()

	buses, err := c.BusList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3}, buses.Buses)
	assert.Equal(t, "bus/list", <-srv.requests)

	bus, err := c.BusCreate(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), bus.BusID)
	assert.Equal(t, "bus/create 7", <-srv.requests)

	dev, err := c.DeviceAdd(ctx, 7, DeviceTypeKeyboard)
	require.NoError(t, err)
	assert.Equal(t, "1", dev.DevId)
	assert.Equal(t, `bus/7/add {"type":"keyboard"}`, <-srv.requests)
}

func TestClientApiError(t *testing.T) {
	srv := newFakeServer(t, "", map[string]string{
		"bus/create": `{"status":409,"title":"Conflict","detail":"bus 1 exists"}`,
	})
	c := New(srv.addr(), nil, nil)

	_, err := c.BusCreate(context.Background(), 1)
	assert.EqualError(t, err, "409 Conflict: bus 1 exists")
	var apiErr ApiError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
}

func TestClientAuthenticated(t *testing.T) {
	srv := newFakeServer(t, "s3cret", map[string]string{
		"bus/list": `{"buses":[]}`,
	})
	ctx := context.Background()

	c := New(srv.addr(), &Config{Password: "s3cret"}, nil)
	buses, err := c.BusList(ctx)
	require.NoError(t, err)
	assert.Empty(t, buses.Buses)

	stream, err := c.OpenStream(ctx, 1, "2")
	require.NoError(t, err)
	_, err = stream.Write([]byte{0x02, 0x01, 0x0B})
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Equal(t, "bus/list", <-srv.requests)
	assert.Equal(t, "bus/1/2", <-srv.requests)
	assert.Equal(t, []byte{0x02, 0x01, 0x0B}, <-srv.streams)

	bad := New(srv.addr(), &Config{Password: "wrong"}, nil)
	_, err = bad.BusList(ctx)
	assert.EqualError(t, err, "401 Unauthorized: invalid password")
}

func TestAuthenticateKeepsCoalescedFrame(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = server.Close() })
	require.NoError(t, client.SetDeadline(time.Now().Add(5*time.Second)))

	serverErr := make(chan error, 1)
	go func() {
		key, err := DeriveKey("s3cret")
		if err != nil {
			serverErr <- err
			return
		}
		hello := make([]byte, len(handshakeMagic)+nonceSize+sha256.Size)
		if _, err := io.ReadFull(server, hello); err != nil {
			serverErr <- err
			return
		}
		clientNonce := hello[len(handshakeMagic) : len(handshakeMagic)+nonceSize]
		serverNonce := make([]byte, nonceSize)
		aead, err := chacha20poly1305.New(deriveSessionKey(key, serverNonce, clientNonce))
		if err != nil {
			serverErr <- err
			return
		}
		nonce := make([]byte, chacha20poly1305.NonceSize)
		ct := aead.Seal(nil, nonce, []byte(`{"buses":[4]}`+"\n"), nil)

		// handshake reply and first frame leave in a single write
		msg := append([]byte(handshakeOK), serverNonce...)
		msg = binary.BigEndian.AppendUint32(msg, uint32(len(nonce)+len(ct)))
		msg = append(msg, nonce...)
		msg = append(msg, ct...)
		_, err = server.Write(msg)
		serverErr <- err
	}()

	conn, err := authenticate(client, "s3cret")
	require.NoError(t, err)
	require.NoError(t, <-serverErr)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, `{"buses":[4]}`+"\n", line)
}

func TestDeriveKey(t *testing.T) {
	_, err := DeriveKey("")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	a, err := DeriveKey("password123")
	require.NoError(t, err)
	b, err := DeriveKey("password123")
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
}

func TestParse(t *testing.T) {
	_, err := parse[BusListResponse]("")
	assert.EqualError(t, err, "empty response")

	_, err = parse[BusListResponse]("not json")
	assert.ErrorContains(t, err, "decode")
}
