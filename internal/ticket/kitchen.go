package ticket

import (
	"fmt"
	"strings"

	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/escpos"
)

// RenderKitchenTicket renders the price-free ticket for the cooking staff.
func (f *Formatter) RenderKitchenTicket(o entity.Order) []byte {
	annotations := Annotate(o)
	b := f.begin()

	f.writeHeading(b, o)
	f.writeAnnotations(b, annotations)
	f.writeCustomer(b, o)
	b.Line(f.layout.Divider('-'))

	for i, item := range o.Items {
		if i > 0 {
			b.Blank()
		}
		b.Size(escpos.SizeDoubleHeight).Bold(true)
		b.Lines(f.layout.Left(fmt.Sprintf("%dx %s", item.Quantity, strings.TrimSpace(Sanitize(item.Name)))))
		b.Size(escpos.SizeNormal).Bold(false)
		f.writeModifiers(b, item.Modifiers, false)
		if notes := annotations.ItemNotes[i]; notes != "" {
			b.Bold(true).Lines(f.layout.Indent(notes, "  NOTE: ")).Bold(false)
		}
	}
	b.Line(f.layout.Divider('-'))

	f.writeGeneralNotes(b, annotations.GeneralNotes)

	count := o.ItemCount()
	noun := "items"
	if count == 1 {
		noun = "item"
	}
	b.Line(f.layout.Center(fmt.Sprintf("%d %s", count, noun)))

	return f.finish(b)
}
