package peripheral

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/printcore/internal/entity"
)

const defaultWriteTimeout = 10 * time.Second

// TCP drives network thermal printers on their raw port (usually 9100).
type TCP struct {
	candidates  []entity.PrinterDevice
	dialTimeout time.Duration
	logger      *zap.Logger

	mu   sync.Mutex
	conn net.Conn
}

// NewTCP builds a TCP peripheral. Discovery probes the candidate addresses.
func NewTCP(candidates []entity.PrinterDevice, dialTimeout time.Duration, logger *zap.Logger) *TCP {
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TCP{candidates: candidates, dialTimeout: dialTimeout, logger: logger}
}

// Discover returns the candidates that accept a TCP connection.
func (t *TCP) Discover(ctx context.Context) ([]entity.PrinterDevice, error) {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		found = make([]bool, len(t.candidates))
	)
	for i, candidate := range t.candidates {
		wg.Add(1)
		go func(i int, address string) {
			defer wg.Done()
			conn, err := t.dial(ctx, address)
			if err != nil {
				t.logger.Debug("printer probe failed", zap.String("address", address), zap.Error(err))
				return
			}
			_ = conn.Close()
			mu.Lock()
			found[i] = true
			mu.Unlock()
		}(i, candidate.Address)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devices := make([]entity.PrinterDevice, 0, len(t.candidates))
	for i, ok := range found {
		if ok {
			devices = append(devices, t.candidates[i])
		}
	}
	return devices, nil
}

// Connect dials address, replacing any existing connection.
func (t *TCP) Connect(ctx context.Context, address string) error {
	conn, err := t.dial(ctx, address)
	if err != nil {
		return fmt.Errorf("dial printer %s: %w", address, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.conn = conn
	return nil
}

// Send writes data to the open connection.
func (t *TCP) Send(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return errors.New("printer connection is not open")
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := t.conn.Write(data); err != nil {
		return fmt.Errorf("write to printer: %w", err)
	}
	return nil
}

// Disconnect closes the connection if one is open.
func (t *TCP) Disconnect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *TCP) dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: t.dialTimeout}
	return dialer.DialContext(ctx, "tcp", address)
}
