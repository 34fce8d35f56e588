// Package peripheraltest provides an in-process peripheral that records calls.
package peripheraltest

import (
	"context"
	"errors"
	"sync"

	"github.com/Additional-Code/printcore/internal/entity"
)

// ErrUnavailable is returned by a Fake configured to fail.
var ErrUnavailable = errors.New("peripheral unavailable")

// Fake is a scriptable peripheral. The zero value discovers nothing and
// accepts every connect and send.
type Fake struct {
	mu sync.Mutex

	Devices       []entity.PrinterDevice
	DiscoverErr   error
	ConnectErr    error
	SendErr       error
	DisconnectErr error

	connectCalls    []string
	sent            [][]byte
	disconnectCalls int
}

// Discover returns the scripted devices.
func (f *Fake) Discover(context.Context) ([]entity.PrinterDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DiscoverErr != nil {
		return nil, f.DiscoverErr
	}
	return append([]entity.PrinterDevice(nil), f.Devices...), nil
}

// Connect records the attempt and returns ConnectErr.
func (f *Fake) Connect(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls = append(f.connectCalls, address)
	return f.ConnectErr
}

// Send records data when SendErr is nil.
func (f *Fake) Send(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

// Disconnect records the call and returns DisconnectErr.
func (f *Fake) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectCalls++
	return f.DisconnectErr
}

// SetConnectErr changes the connect outcome.
func (f *Fake) SetConnectErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectErr = err
}

// SetSendErr changes the send outcome.
func (f *Fake) SetSendErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SendErr = err
}

// ConnectCalls returns the addresses passed to Connect.
func (f *Fake) ConnectCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.connectCalls...)
}

// Sent returns every successfully transmitted payload.
func (f *Fake) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

// SendCount returns the number of successful transmits.
func (f *Fake) SendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// DisconnectCalls returns how often Disconnect was invoked.
func (f *Fake) DisconnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnectCalls
}
