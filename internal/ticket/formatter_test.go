package ticket

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/printcore/internal/entity"
	"github.com/Additional-Code/printcore/internal/escpos"
)

var (
	resetPrefix = []byte{0x1b, 0x40}
	feedCut     = []byte{0x1b, 0x64, 0x04, 0x1d, 0x56, 0x00}
)

func sampleOrder() entity.Order {
	return entity.Order{
		ID:        "ord-1",
		Number:    "1042",
		Type:      entity.TypeDelivery,
		Status:    entity.StatusPending,
		CreatedAt: created,
		Customer:  entity.Customer{Name: "Zoë Martin", Phone: "555-0100"},
		DeliveryAddress: &entity.Address{
			Line1:        "12 Harbour Rd",
			City:         "Portside",
			PostalCode:   "90210",
			Instructions: "Ring the side door",
		},
		Items: []entity.Item{
			{
				Name:      "Margherita",
				Quantity:  2,
				UnitPrice: 1250,
				Modifiers: []entity.Modifier{
					{Name: "Olives", Group: "Toppings", Price: 100, Quantity: 1},
					{Name: "Ham", Group: "Meat", Price: 200, Quantity: 1},
					{Name: "Peppers", Group: "Toppings", Quantity: 1},
				},
			},
			{Name: "Crème brûlée", Quantity: 1, UnitPrice: 650, Notes: "no sugar on top"},
		},
		Notes:  "Customer has a severe peanut allergy. Extra napkins",
		Totals: entity.Totals{Subtotal: 3750, Tax: 300, DeliveryFee: 499, Total: 4549},
		Paid:   true,
	}
}

func TestKitchenTicketFraming(t *testing.T) {
	out := New(DefaultLayout()).RenderKitchenTicket(sampleOrder())

	assert.True(t, bytes.HasPrefix(out, resetPrefix))
	assert.True(t, bytes.HasSuffix(out, feedCut))
}

func TestJobPreambleClearsCharSpacing(t *testing.T) {
	f := New(DefaultLayout())
	preamble := (&escpos.Buffer{}).Init().Align(escpos.AlignLeft).Size(escpos.SizeNormal).CharSpacing(0).Bytes()

	assert.True(t, bytes.HasPrefix(f.RenderKitchenTicket(sampleOrder()), preamble))
	assert.True(t, bytes.HasPrefix(f.RenderCustomerReceipt(sampleOrder()), preamble))
}

func TestKitchenTicketOmitsPrices(t *testing.T) {
	out := string(New(DefaultLayout()).RenderKitchenTicket(sampleOrder()))

	assert.NotContains(t, out, "$")
	assert.Contains(t, out, "2x Margherita")
	assert.Contains(t, out, "1x Creme brulee")
	assert.Contains(t, out, "  NOTE: no sugar on top")
	assert.Contains(t, out, "3 items")
}

func TestKitchenTicketAllergyShownOnce(t *testing.T) {
	out := string(New(DefaultLayout()).RenderKitchenTicket(sampleOrder()))

	assert.Contains(t, out, "*** ALLERGY ALERT ***")
	assert.Contains(t, out, "> Customer has a severe peanut allergy")
	assert.Equal(t, 1, strings.Count(out, "severe peanut allergy"))
	assert.NotContains(t, out, "IMPORTANT")

	notes := strings.Index(out, "NOTES:")
	require.NotEqual(t, -1, notes)
	assert.Contains(t, out[notes:], "Extra napkins")
	assert.NotContains(t, out[notes:], "peanut")
}

func TestKitchenTicketGroupsModifiers(t *testing.T) {
	out := string(New(DefaultLayout()).RenderKitchenTicket(sampleOrder()))

	toppings := strings.Index(out, "    Toppings:")
	meat := strings.Index(out, "    Meat:")
	olives := strings.Index(out, "      - Olives")
	peppers := strings.Index(out, "      - Peppers")
	require.True(t, toppings >= 0 && meat >= 0 && olives >= 0 && peppers >= 0)
	assert.NotContains(t, out, "\n  Toppings:", "group header must sit under the item, not level with it")
	assert.Less(t, toppings, olives)
	assert.Less(t, olives, peppers)
	assert.Less(t, peppers, meat)
}

func TestKitchenTicketDeliveryBlock(t *testing.T) {
	out := string(New(DefaultLayout()).RenderKitchenTicket(sampleOrder()))

	assert.Contains(t, out, "DELIVERY")
	assert.Contains(t, out, "#1042")
	assert.Contains(t, out, "Customer: Zoe Martin")
	assert.Contains(t, out, "Portside, 90210")
	assert.Contains(t, out, "Instructions: Ring the side door")
}

func TestKitchenTicketScheduledBlock(t *testing.T) {
	o := sampleOrder()
	o.Notes = "Scheduled for: 2024-05-01 19:30. Extra napkins"
	out := string(New(DefaultLayout()).RenderKitchenTicket(o))

	assert.Contains(t, out, "SCHEDULED ORDER")
	assert.Contains(t, out, "Wed May 1 7:30 PM")
	assert.NotContains(t, out, "Scheduled for:")
	assert.Contains(t, out, "Extra napkins")
}

func TestCustomerReceiptPrices(t *testing.T) {
	l := DefaultLayout()
	out := string(New(l, "Luigi's Pizza").RenderCustomerReceipt(sampleOrder()))

	assert.True(t, strings.HasPrefix(out, string(resetPrefix)))
	assert.True(t, strings.HasSuffix(out, string(feedCut)))
	assert.Contains(t, out, l.Center("Luigi's Pizza"))
	assert.Contains(t, out, l.RightAlign("2x Margherita", "$25.00"))
	assert.Contains(t, out, l.RightAlign("    + Olives", "$1.00"))
	assert.Contains(t, out, "      - Peppers")
	assert.Contains(t, out, l.RightAlign("Subtotal", "$37.50"))
	assert.Contains(t, out, l.RightAlign("Tax", "$3.00"))
	assert.Contains(t, out, l.RightAlign("Delivery fee", "$4.99"))
	assert.NotContains(t, out, "Tip")
	assert.Contains(t, out, l.RightAlign("TOTAL", "$45.49"))
	assert.Contains(t, out, l.Wide().Center("PAID"))
	assert.Equal(t, 1, strings.Count(out, "severe peanut allergy"))
}

func TestCustomerReceiptPaymentDue(t *testing.T) {
	o := sampleOrder()
	o.Paid = false
	o.Totals.Tip = 500
	out := string(New(DefaultLayout()).RenderCustomerReceipt(o))

	assert.Contains(t, out, "PAYMENT DUE")
	assert.NotContains(t, out, "PAID")
	assert.Contains(t, out, DefaultLayout().RightAlign("Tip", "$5.00"))
}

func TestRenderingIsDeterministic(t *testing.T) {
	f := New(DefaultLayout())
	o := sampleOrder()
	assert.Equal(t, f.RenderKitchenTicket(o), f.RenderKitchenTicket(o))
	assert.Equal(t, f.RenderCustomerReceipt(o), f.RenderCustomerReceipt(o))
}

func TestRenderedLinesFitPaper(t *testing.T) {
	o := sampleOrder()
	o.Notes = strings.Repeat("averyveryverylongtokenwithoutanyspaces", 3) + " and more words after it"
	l := DefaultLayout()
	for _, out := range [][]byte{New(l).RenderKitchenTicket(o), New(l).RenderCustomerReceipt(o)} {
		for _, line := range strings.Split(stripControl(out), "\n") {
			assert.LessOrEqual(t, len(line), l.Margin+l.Columns, line)
		}
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0.05", money(5))
	assert.Equal(t, "$12.50", money(1250))
	assert.Equal(t, "-$0.50", money(-50))
}

// stripControl removes the ESC/POS sequences the renderers emit so only
// printable text and line feeds remain.
func stripControl(b []byte) string {
	var out []byte
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case 0x1b:
			if i+1 < len(b) && b[i+1] == '@' {
				i++
			} else {
				i += 2
			}
		case 0x1d:
			i += 2
		default:
			out = append(out, b[i])
		}
	}
	return string(out)
}

func TestItemNoteBannerFragmentPrintedOnce(t *testing.T) {
	o := sampleOrder()
	o.Notes = ""
	o.Items[1].Notes = "severe peanut allergy. no sugar on top"
	f := New(DefaultLayout())

	for name, out := range map[string]string{
		"kitchen": string(f.RenderKitchenTicket(o)),
		"receipt": string(f.RenderCustomerReceipt(o)),
	} {
		assert.Equal(t, 1, strings.Count(out, "severe peanut allergy"), name)
		assert.Contains(t, out, "> Creme brulee: severe peanut allergy", name)
		assert.Contains(t, out, "no sugar on top", name)
	}
}
