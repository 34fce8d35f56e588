package entity

// PrinterDevice is a discovered printing peripheral.
type PrinterDevice struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}
