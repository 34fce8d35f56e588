package ticket

import (
	"fmt"
	"strings"

	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/escpos"
)

// RenderCustomerReceipt renders the itemised, priced receipt for the customer.
func (f *Formatter) RenderCustomerReceipt(o entity.Order) []byte {
	annotations := Annotate(o)
	b := f.begin()

	if len(f.header) > 0 {
		b.Bold(true)
		for _, line := range f.header {
			b.Line(f.layout.Center(Sanitize(line)))
		}
		b.Bold(false).Blank()
	}

	f.writeHeading(b, o)
	f.writeAnnotations(b, annotations)
	f.writeCustomer(b, o)
	b.Line(f.layout.Divider('-'))

	for i, item := range o.Items {
		name := fmt.Sprintf("%dx %s", item.Quantity, strings.TrimSpace(Sanitize(item.Name)))
		b.Bold(true).Line(f.layout.RightAlign(name, money(item.LineTotal()))).Bold(false)
		f.writeModifiers(b, item.Modifiers, true)
		if notes := annotations.ItemNotes[i]; notes != "" {
			b.Lines(f.layout.Indent(notes, "  Note: "))
		}
	}
	b.Line(f.layout.Divider('-'))

	t := o.Totals
	b.Line(f.layout.RightAlign("Subtotal", money(t.Subtotal)))
	b.Line(f.layout.RightAlign("Tax", money(t.Tax)))
	if t.DeliveryFee != 0 {
		b.Line(f.layout.RightAlign("Delivery fee", money(t.DeliveryFee)))
	}
	if t.Tip != 0 {
		b.Line(f.layout.RightAlign("Tip", money(t.Tip)))
	}
	b.Size(escpos.SizeDoubleHeight).Bold(true)
	b.Line(f.layout.RightAlign("TOTAL", money(t.Total)))
	b.Size(escpos.SizeNormal).Bold(false)
	b.Line(f.layout.Divider('='))

	marker := "PAYMENT DUE"
	if o.Paid {
		marker = "PAID"
	}
	b.Size(escpos.SizeDoubleSize).Bold(true)
	b.Line(f.layout.Wide().Center(marker))
	b.Size(escpos.SizeNormal).Bold(false)
	b.Line(f.layout.Divider('='))

	f.writeGeneralNotes(b, annotations.GeneralNotes)
	b.Line(f.layout.Center("Thank you!"))

	return f.finish(b)
}
