package documents

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedEdge returns the longest suffix of a that is also a prefix of b
func sharedEdge(a, b string) int {
	for k := min(len(a), len(b)); k > 0; k-- {
		if a[len(a)-k:] == b[:k] {
			return k
		}
	}
	return 0
}

func TestSplit_SizeAndOverlapBounds(t *testing.T) {
	var words []string
	for i := 0; i < 500; i++ {
		words = append(words, fmt.Sprintf("w%04d", i))
	}
	text := strings.Join(words, " ")

	s, err := NewRecursiveSplitter(1000, 150)
	require.NoError(t, err)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 2)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 1000)
		if i == 0 {
			continue
		}
		overlap := sharedEdge(chunks[i-1], c)
		assert.Greater(t, overlap, 0, "chunk %d", i)
		assert.LessOrEqual(t, overlap, 150, "chunk %d", i)
	}

	assert.True(t, strings.HasPrefix(chunks[0], "w0000"))
	assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], "w0499"))
}

func TestSplit_PrefersParagraphs(t *testing.T) {
	p1 := strings.TrimSpace(strings.Repeat("alpha ", 100))
	p2 := strings.TrimSpace(strings.Repeat("beta ", 120))

	s, err := NewRecursiveSplitter(1000, 150)
	require.NoError(t, err)

	assert.Equal(t, []string{p1, p2}, s.Split(p1+"\n\n"+p2))
}

func TestSplit_HardCut(t *testing.T) {
	s, err := NewRecursiveSplitter(1000, 150)
	require.NoError(t, err)

	chunks := s.Split(strings.Repeat("x", 2500))
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000)
	}
	assert.Len(t, chunks[0], 1000)
}

func TestSplit_CountsRunes(t *testing.T) {
	s, err := NewRecursiveSplitter(100, 10)
	require.NoError(t, err)

	chunks := s.Split(strings.Repeat("é", 250))
	require.NotEmpty(t, chunks)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0]))
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
	}
}

func TestSplit_ShortAndBlank(t *testing.T) {
	s, err := NewRecursiveSplitter(1000, 150)
	require.NoError(t, err)

	assert.Equal(t, []string{"hello world"}, s.Split("  hello world \n"))
	assert.Empty(t, s.Split(" \n\n \n"))
	assert.Empty(t, s.Split(""))
}

func TestNewRecursiveSplitter_Invalid(t *testing.T) {
	_, err := NewRecursiveSplitter(0, 0)
	assert.Error(t, err)
	_, err = NewRecursiveSplitter(100, 200)
	assert.Error(t, err)
}

func TestSplitKeep(t *testing.T) {
	assert.Equal(t, []string{"a", " b", " c"}, splitKeep("a b c", " "))
	assert.Equal(t, []string{"\n\nx"}, splitKeep("\n\nx", "\n\n"))
	assert.Equal(t, []string{"é", "a"}, splitKeep("éa", ""))
}

func TestChunker_Provenance(t *testing.T) {
	c, err := NewChunker(WithChunkSize(20), WithChunkOverlap(0))
	require.NoError(t, err)

	chunks := c.Chunk([]ContentBlock{
		{Type: BlockText, Content: "first block has several words", Page: 1, Source: "a.pdf"},
		{Type: BlockImageDescription, Content: "[IMAGE]: a chart", Page: 2, Source: "a.pdf"},
	})
	require.Len(t, chunks, 3)

	assert.Equal(t, "first block has", chunks[0].Text)
	assert.Equal(t, "several words", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].Page)
	assert.Equal(t, "[IMAGE]: a chart", chunks[2].Text)
	assert.Equal(t, 2, chunks[2].Page)
	for _, ch := range chunks {
		assert.Equal(t, "a.pdf", ch.Source)
		assert.Empty(t, ch.ID)
	}
}

func TestNewChunker_Defaults(t *testing.T) {
	c, err := NewChunker()
	require.NoError(t, err)
	assert.Equal(t, 1000, c.size)
	assert.Equal(t, 150, c.overlap)

	_, err = NewChunker(WithChunkSize(10), WithChunkOverlap(11))
	assert.Error(t, err)
}
