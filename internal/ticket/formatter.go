// Package ticket renders orders into ESC/POS byte streams for the kitchen
// ticket and the customer receipt. Rendering is pure: the same order and
// layout always produce the same bytes.
package ticket

import (
	"fmt"
	"strings"

	"go.uber.org/fx"

	"github.com/Additional-Code/printcore/internal/config"
	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/escpos"
)

// Lines fed before the cut so the last printed line clears the cutter.
const trailingFeed = 4

// Formatter renders tickets with a fixed layout.
type Formatter struct {
	layout Layout
	header []string
}

// Module provides the formatter from configuration.
var Module = fx.Provide(NewFromConfig)

// NewFromConfig builds a formatter using TICKET_COLUMNS, TICKET_MARGIN and TICKET_HEADER.
func NewFromConfig(cfg config.Config) *Formatter {
	return New(Layout{Columns: cfg.Printing.Columns, Margin: cfg.Printing.Margin}, cfg.Printing.Header...)
}

// New builds a formatter. header lines are printed at the top of receipts.
func New(layout Layout, header ...string) *Formatter {
	if layout.Columns <= 0 {
		layout = DefaultLayout()
	}
	return &Formatter{layout: layout, header: header}
}

// Layout returns the normal-scale layout.
func (f *Formatter) Layout() Layout { return f.layout }

func (f *Formatter) begin() *escpos.Buffer {
	b := &escpos.Buffer{}
	b.Init().Align(escpos.AlignLeft).Size(escpos.SizeNormal).CharSpacing(0)
	return b
}

func (f *Formatter) finish(b *escpos.Buffer) []byte {
	b.Size(escpos.SizeNormal).Bold(false).Underline(false)
	b.Feed(trailingFeed).Cut()
	return b.Bytes()
}

// writeHeading prints the order type and number at double size.
func (f *Formatter) writeHeading(b *escpos.Buffer, o entity.Order) {
	wide := f.layout.Wide()
	b.Size(escpos.SizeDoubleSize).Bold(true)
	b.Line(wide.Center(o.Type.Label()))
	b.Line(wide.Center("#" + Sanitize(o.Number)))
	b.Size(escpos.SizeNormal).Bold(false)
	if !o.CreatedAt.IsZero() {
		b.Line(f.layout.Center(o.CreatedAt.Format("Mon Jan 2 3:04 PM")))
	}
	b.Line(f.layout.Divider('='))
}

// writeAnnotations prints the scheduled block and the safety banners.
func (f *Formatter) writeAnnotations(b *escpos.Buffer, a Annotations) {
	if a.Scheduled != nil {
		b.Size(escpos.SizeDoubleHeight).Bold(true)
		b.Line(f.layout.Center("SCHEDULED ORDER"))
		b.Line(f.layout.Center(a.Scheduled.Display()))
		b.Size(escpos.SizeNormal).Bold(false)
		b.Line(f.layout.Divider('-'))
	}
	for _, banner := range a.Banners {
		b.Size(escpos.SizeDoubleHeight).Bold(true)
		b.Line(f.layout.Center(banner.Title))
		b.Size(escpos.SizeNormal)
		for _, line := range banner.Lines {
			b.Lines(f.layout.Indent(line, "> "))
		}
		b.Bold(false)
		b.Line(f.layout.Divider('-'))
	}
}

// writeCustomer prints the customer and, for deliveries, the destination.
func (f *Formatter) writeCustomer(b *escpos.Buffer, o entity.Order) {
	if name := strings.TrimSpace(Sanitize(o.Customer.Name)); name != "" {
		b.Bold(true).Lines(f.layout.Indent(name, "Customer: ")).Bold(false)
	}
	if phone := strings.TrimSpace(Sanitize(o.Customer.Phone)); phone != "" {
		b.Lines(f.layout.Indent(phone, "Phone: "))
	}
	addr := o.DeliveryAddress
	if addr == nil {
		return
	}
	b.Bold(true).Line(f.layout.Left("Deliver to:")[0]).Bold(false)
	for _, part := range []string{addr.Line1, addr.Line2, joinNonEmpty(", ", addr.City, addr.PostalCode)} {
		if part = strings.TrimSpace(Sanitize(part)); part != "" {
			b.Lines(f.layout.Indent(part, "  "))
		}
	}
	if instructions := strings.TrimSpace(Sanitize(addr.Instructions)); instructions != "" {
		b.Lines(f.layout.Indent(instructions, "Instructions: "))
	}
}

func (f *Formatter) writeModifiers(b *escpos.Buffer, mods []entity.Modifier, priced bool) {
	for _, group := range GroupModifiers(mods) {
		indent := "  "
		if group.Name != "" {
			b.Underline(true).Lines(f.layout.Indent(Sanitize(group.Name)+":", "  ")).Underline(false)
			indent = "    "
		}
		for _, m := range group.Modifiers {
			label := modifierLabel(m)
			if priced && m.Price != 0 {
				b.Line(f.layout.RightAlign(indent+"+ "+label, money(modifierTotal(m))))
				continue
			}
			b.Lines(f.layout.Indent(label, indent+"- "))
		}
	}
}

func (f *Formatter) writeGeneralNotes(b *escpos.Buffer, notes string) {
	if notes == "" {
		return
	}
	b.Bold(true).Line(f.layout.Left("NOTES:")[0]).Bold(false)
	b.Lines(f.layout.Left(notes))
	b.Line(f.layout.Divider('-'))
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
