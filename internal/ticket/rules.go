package ticket

import (
	"regexp"
	"strings"

	"github.com/Additional-Code/printcore/internal/entity"
)

// Category is a safety annotation class. Rules are evaluated in precedence order.
type Category string

const (
	CategoryUrgent    Category = "urgent"
	CategoryAllergy   Category = "allergy"
	CategoryDietary   Category = "dietary"
	CategoryImportant Category = "important"
)

// Rule maps a category to its banner title and trigger keywords.
type Rule struct {
	Category Category
	Title    string
	Keywords []string

	pattern *regexp.Regexp
}

// Matches reports whether text contains one of the rule keywords as a whole word.
func (r Rule) Matches(text string) bool {
	return r.pattern.MatchString(text)
}

var rules = compileRules([]Rule{
	{
		Category: CategoryUrgent,
		Title:    "!!! URGENT !!!",
		Keywords: []string{"urgent", "urgently", "rush", "rushed", "asap", "hurry", "immediately", "priority", "emergency"},
	},
	{
		Category: CategoryAllergy,
		Title:    "*** ALLERGY ALERT ***",
		Keywords: []string{
			"allergy", "allergies", "allergic", "allergen", "allergens",
			"alergy", "alergies", "alergic", "alergen", "allegy", "allergey", "allergie", "allery", "allerg",
			"anaphylaxis", "anaphylactic", "epipen", "epi-pen", "epi pen",
		},
	},
	{
		Category: CategoryDietary,
		Title:    "DIETARY RESTRICTION",
		Keywords: []string{
			"vegan", "vegetarian", "pescatarian", "halal", "kosher", "keto",
			"gluten free", "gluten-free", "no gluten", "celiac", "coeliac",
			"dairy free", "dairy-free", "no dairy", "lactose", "lactose intolerant",
			"nut free", "nut-free", "no pork", "no meat",
		},
	},
	{
		Category: CategoryImportant,
		Title:    "IMPORTANT",
		Keywords: []string{"important", "must", "make sure", "please ensure", "careful", "do not", "don't", "dont", "never", "critical"},
	},
})

func compileRules(rs []Rule) []Rule {
	for i := range rs {
		parts := make([]string, len(rs[i].Keywords))
		for j, kw := range rs[i].Keywords {
			parts[j] = regexp.QuoteMeta(kw)
		}
		rs[i].pattern = regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
	}
	return rs
}

// Rules returns the annotation rule table in precedence order.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// Banner is a rendered safety annotation: its title and the literal note
// fragments that triggered it.
type Banner struct {
	Category Category
	Title    string
	Lines    []string
}

// Annotations is the content-derived part of a ticket, shared by both renderers.
type Annotations struct {
	Scheduled    *Schedule
	Banners      []Banner
	GeneralNotes string
	// ItemNotes is indexed like the order items and holds what remains of each
	// item's notes once banner fragments are removed.
	ItemNotes []string
}

// Annotate evaluates the scheduling and keyword rules over the order notes and
// each item's notes. A fragment is shown under the first banner that claims it
// only; the general notes keep what no banner claimed.
func Annotate(o entity.Order) Annotations {
	notes := strings.TrimSpace(Sanitize(o.Notes))
	var a Annotations
	a.Scheduled, notes = detectSchedule(o, notes)

	orderFrags := splitFragments(notes)
	claimed := make([]bool, len(orderFrags))
	shown := make(map[string]bool)

	type itemNotes struct {
		index   int
		name    string
		frags   []fragment
		claimed []bool
	}
	items := make([]itemNotes, 0, len(o.Items))
	for i, item := range o.Items {
		if frags := splitFragments(Sanitize(item.Notes)); len(frags) > 0 {
			items = append(items, itemNotes{
				index:   i,
				name:    strings.TrimSpace(Sanitize(item.Name)),
				frags:   frags,
				claimed: make([]bool, len(frags)),
			})
		}
	}

	for _, rule := range rules {
		var lines []string
		for i, f := range orderFrags {
			if claimed[i] || !rule.Matches(f.text) {
				continue
			}
			claimed[i] = true
			key := strings.ToLower(f.text)
			if !shown[key] {
				shown[key] = true
				lines = append(lines, f.text)
			}
		}
		for _, item := range items {
			for j, f := range item.frags {
				if item.claimed[j] || !rule.Matches(f.text) {
					continue
				}
				item.claimed[j] = true
				key := strings.ToLower(f.text)
				if shown[key] {
					continue
				}
				shown[key] = true
				lines = append(lines, item.name+": "+f.text)
			}
		}
		if len(lines) > 0 {
			a.Banners = append(a.Banners, Banner{Category: rule.Category, Title: rule.Title, Lines: lines})
		}
	}

	if !duplicatesInstructions(notes, o.DeliveryAddress) {
		var kept []fragment
		for i, f := range orderFrags {
			if !claimed[i] {
				kept = append(kept, f)
			}
		}
		a.GeneralNotes = joinFragments(kept)
	}

	a.ItemNotes = make([]string, len(o.Items))
	for _, item := range items {
		var kept []fragment
		for j, f := range item.frags {
			if !item.claimed[j] {
				kept = append(kept, f)
			}
		}
		a.ItemNotes[item.index] = joinFragments(kept)
	}
	return a
}

// Banner returns the banner for c, if present.
func (a Annotations) Banner(c Category) (Banner, bool) {
	for _, b := range a.Banners {
		if b.Category == c {
			return b, true
		}
	}
	return Banner{}, false
}

// duplicatesInstructions reports whether notes repeat the delivery instructions,
// judged by the first 20 characters of the instructions appearing in the notes.
func duplicatesInstructions(notes string, addr *entity.Address) bool {
	if addr == nil || notes == "" {
		return false
	}
	instructions := strings.TrimSpace(Sanitize(addr.Instructions))
	if instructions == "" {
		return false
	}
	key := strings.ToLower(truncate(instructions, 20))
	return strings.Contains(strings.ToLower(notes), key)
}

type fragment struct {
	text string
	sep  string
}

var fragmentBreak = regexp.MustCompile(`[.!?;,]+(?:\s+|$)|\n+`)

// splitFragments cuts notes into clauses at sentence punctuation, commas and
// line breaks, remembering the punctuation that closed each clause.
func splitFragments(s string) []fragment {
	var out []fragment
	last := 0
	for _, loc := range fragmentBreak.FindAllStringIndex(s, -1) {
		if text := strings.TrimSpace(s[last:loc[0]]); text != "" {
			out = append(out, fragment{text: text, sep: strings.TrimSpace(s[loc[0]:loc[1]])})
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(s[last:]); tail != "" {
		out = append(out, fragment{text: tail})
	}
	return out
}

func joinFragments(frags []fragment) string {
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.text + f.sep
	}
	return strings.TrimRight(strings.Join(parts, " "), ",;")
}
