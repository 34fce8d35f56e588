package escpos

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

// The golden file pins the exact bytes the device interprets; regenerate with
// go test ./internal/escpos -update only when the hardware vocabulary changes.
func TestVocabularyGolden(t *testing.T) {
	var sb strings.Builder
	for _, cmd := range Vocabulary() {
		fmt.Fprintf(&sb, "%-16s% x\n", cmd.Name, cmd.Bytes)
	}
	g := goldie.New(t)
	g.Assert(t, "vocabulary", []byte(sb.String()))
}

func TestBufferMatchesVocabulary(t *testing.T) {
	byName := map[string][]byte{}
	for _, cmd := range Vocabulary() {
		byName[cmd.Name] = cmd.Bytes
	}

	var b Buffer
	b.Init().Align(AlignCenter).Size(SizeDoubleSize).Bold(true).Underline(true).CharSpacing(2)
	b.Bold(false).Underline(false).Size(SizeNormal).Align(AlignLeft).Feed(4).Cut()

	var want []byte
	for _, name := range []string{
		"init", "align-center", "double-size", "bold-on", "underline-on", "char-spacing-2",
		"bold-off", "underline-off", "size-normal", "align-left", "feed-4", "cut",
	} {
		want = append(want, byName[name]...)
	}
	assert.Equal(t, want, b.Bytes())
}

func TestBufferText(t *testing.T) {
	var b Buffer
	b.Line("  #1042").Blank().Lines([]string{"a", "b"}).Text("c")
	assert.Equal(t, []byte("  #1042\n\na\nb\nc"), b.Bytes())
}
