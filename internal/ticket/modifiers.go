package ticket

import (
	"fmt"
	"strings"

	"github.com/Additional-Code/printcore/internal/entity"
)

// ModifierGroup is a run of modifiers sharing a group name. An empty Name
// renders without a header.
type ModifierGroup struct {
	Name      string
	Modifiers []entity.Modifier
}

// GroupModifiers buckets modifiers by group name. Groups appear in the order
// their first member was seen; members keep their relative order.
func GroupModifiers(mods []entity.Modifier) []ModifierGroup {
	var groups []ModifierGroup
	index := make(map[string]int)
	for _, m := range mods {
		name := strings.TrimSpace(m.Group)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, ModifierGroup{Name: name})
		}
		groups[i].Modifiers = append(groups[i].Modifiers, m)
	}
	return groups
}

func modifierLabel(m entity.Modifier) string {
	label := strings.TrimSpace(Sanitize(m.Name))
	if m.Quantity > 1 {
		label = fmt.Sprintf("%dx %s", m.Quantity, label)
	}
	if p := strings.TrimSpace(Sanitize(m.Placement)); p != "" {
		label += " (" + p + ")"
	}
	return label
}

func modifierTotal(m entity.Modifier) int64 {
	qty := m.Quantity
	if qty < 1 {
		qty = 1
	}
	return m.Price * int64(qty)
}
