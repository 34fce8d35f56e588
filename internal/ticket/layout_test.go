package ticket

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutCenter(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, "  "+strings.Repeat(" ", 20)+"ab", l.Center("ab"))

	long := strings.Repeat("x", 50)
	assert.Equal(t, "  "+strings.Repeat("x", 42), l.Center(long))
}

func TestLayoutRightAlign(t *testing.T) {
	l := DefaultLayout()
	got := l.RightAlign("Tax", "$1.00")
	assert.Equal(t, "  Tax"+strings.Repeat(" ", 34)+"$1.00", got)
	assert.Equal(t, 44, utf8.RuneCountInString(got))

	collide := l.RightAlign(strings.Repeat("a", 60), "$10.00")
	assert.Equal(t, 44, utf8.RuneCountInString(collide))
	assert.True(t, strings.HasSuffix(collide, " $10.00"))
}

func TestLayoutWide(t *testing.T) {
	w := DefaultLayout().Wide()
	assert.Equal(t, Layout{Columns: 21, Margin: 1}, w)
	assert.Equal(t, " "+strings.Repeat(" ", 8)+"PAID", w.Center("PAID"))
}

func TestLayoutDivider(t *testing.T) {
	assert.Equal(t, "  "+strings.Repeat("=", 42), DefaultLayout().Divider('='))
}

func TestLayoutIndent(t *testing.T) {
	l := Layout{Columns: 10}
	assert.Equal(t, []string{"> one two", "  three", "  four"}, l.Indent("one two three four", "> "))
}

func TestWordWrap(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"packs words", "the quick brown fox", 10, []string{"the quick", "brown fox"}},
		{"hard splits long token", "aaaaaaaaaa", 4, []string{"aaaa", "aaaa", "aa"}},
		{"flushes before long token", "ab abcdefghij", 4, []string{"ab", "abcd", "efgh", "ij"}},
		{"keeps line breaks", "one\ntwo", 10, []string{"one", "two"}},
		{"drops blank", "  \n\n ", 10, nil},
		{"zero width", "abc", 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WordWrap(tc.text, tc.width))
		})
	}
}

func TestWordWrapNeverExceedsWidth(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		width := 1 + rng.Intn(30)
		words := make([]string, 1+rng.Intn(20))
		for j := range words {
			words[j] = strings.Repeat("w", 1+rng.Intn(45))
		}
		text := strings.Join(words, " ")

		lines := WordWrap(text, width)
		require.NotEmpty(t, lines)
		for _, line := range lines {
			require.LessOrEqual(t, utf8.RuneCountInString(line), width, "width %d text %q", width, text)
		}
		assert.Equal(t, strings.ReplaceAll(text, " ", ""), strings.ReplaceAll(strings.Join(lines, ""), " ", ""))
	}
}

func TestWordWrapHardSplitChunks(t *testing.T) {
	for n := 1; n <= 40; n++ {
		for width := 1; width <= 12; width++ {
			lines := WordWrap(strings.Repeat("z", n), width)
			require.Len(t, lines, (n+width-1)/width)
			for i, line := range lines[:len(lines)-1] {
				require.Len(t, line, width, "chunk %d", i)
			}
			require.LessOrEqual(t, len(lines[len(lines)-1]), width)
		}
	}
}
