package peripheral

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Additional-Code/printcore/internal/entity"
)

// File appends raw print streams to a spool file. It stands in for a device
// during development and lets operators inspect the exact bytes sent.
type File struct {
	candidates []entity.PrinterDevice

	mu   sync.Mutex
	file *os.File
}

// NewFile builds a file peripheral; candidate addresses are file paths.
func NewFile(candidates []entity.PrinterDevice) *File {
	return &File{candidates: candidates}
}

// Discover returns the candidates whose parent directory exists.
func (f *File) Discover(context.Context) ([]entity.PrinterDevice, error) {
	devices := make([]entity.PrinterDevice, 0, len(f.candidates))
	for _, c := range f.candidates {
		if info, err := os.Stat(filepath.Dir(c.Address)); err == nil && info.IsDir() {
			devices = append(devices, c)
		}
	}
	return devices, nil
}

// Connect opens (or creates) the spool file at address.
func (f *File) Connect(_ context.Context, address string) error {
	file, err := os.OpenFile(address, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open spool file %s: %w", address, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file != nil {
		_ = f.file.Close()
	}
	f.file = file
	return nil
}

// Send appends data to the spool file.
func (f *File) Send(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return errors.New("spool file is not open")
	}
	if _, err := f.file.Write(data); err != nil {
		return fmt.Errorf("write spool file: %w", err)
	}
	return nil
}

// Disconnect closes the spool file.
func (f *File) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
