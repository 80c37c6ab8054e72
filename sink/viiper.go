package sink

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gadgetkb/gadgetkb/internal/viiper"
	"github.com/gadgetkb/gadgetkb/keyboard"
)

// Viiper types on a virtual keyboard plugged into a VIIPER USB/IP server.
// The keyboard is added on the first Open; every Open then dials the
// device stream, and the frames are forwarded in VIIPER's keyboard format.
type Viiper struct {
	Addr     string
	Password string
	BusID    uint32 // 0 picks the first existing bus or creates bus 1
	Timeout  time.Duration
	Logger   *slog.Logger

	mu         sync.Mutex
	client     *viiper.Client
	bus        uint32
	dev        string
	createdBus bool
}

func (v *Viiper) String() string { return "viiper://" + v.Addr }

func (v *Viiper) ctx() (context.Context, context.CancelFunc) {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (v *Viiper) Open() (io.WriteCloser, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ctx, cancel := v.ctx()
	defer cancel()
	if err := v.setup(ctx); err != nil {
		return nil, err
	}
	conn, err := v.client.OpenStream(ctx, v.bus, v.dev)
	if err != nil {
		return nil, err
	}
	return &viiperWriter{conn: conn}, nil
}

// setup adds the keyboard device once.
func (v *Viiper) setup(ctx context.Context) error {
	if v.dev != "" {
		return nil
	}
	if v.client == nil {
		v.client = viiper.New(v.Addr, &viiper.Config{
			DialTimeout:  3 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Password:     v.Password,
		}, v.Logger)
	}

	bus := v.BusID
	if bus == 0 {
		list, err := v.client.BusList(ctx)
		if err != nil {
			return err
		}
		if len(list.Buses) > 0 {
			bus = list.Buses[0]
		} else {
			created, err := v.client.BusCreate(ctx, 1)
			if err != nil {
				return err
			}
			bus = created.BusID
			v.createdBus = true
		}
	}

	dev, err := v.client.DeviceAdd(ctx, bus, viiper.DeviceTypeKeyboard)
	if err != nil {
		if v.createdBus {
			_, _ = v.client.BusRemove(ctx, bus)
			v.createdBus = false
		}
		return fmt.Errorf("add keyboard on bus %d: %w", bus, err)
	}
	v.bus, v.dev = dev.BusID, dev.DevId
	if v.Logger != nil {
		v.Logger.Info("VIIPER keyboard attached", "addr", v.Addr, "bus", v.bus, "device", v.dev)
	}
	return nil
}

// Close unplugs the keyboard, and the bus if it was created here.
func (v *Viiper) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dev == "" {
		return nil
	}
	ctx, cancel := v.ctx()
	defer cancel()

	_, err := v.client.DeviceRemove(ctx, v.bus, v.dev)
	if v.createdBus {
		if _, berr := v.client.BusRemove(ctx, v.bus); err == nil {
			err = berr
		}
	}
	v.dev, v.createdBus = "", false
	return err
}

type viiperWriter struct{ conn net.Conn }

func (w *viiperWriter) Write(p []byte) (int, error) {
	if len(p) != keyboard.ReportSize {
		return 0, fmt.Errorf("viiper: report must be %d bytes, got %d", keyboard.ReportSize, len(p))
	}
	var r keyboard.Report
	copy(r[:], p)
	wire, _ := r.MarshalBinary()
	if _, err := w.conn.Write(wire); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *viiperWriter) Close() error { return w.conn.Close() }
