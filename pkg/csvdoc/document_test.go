package csvdoc

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("ragged rows", func(t *testing.T) {
		doc, err := Parse(strings.NewReader("a,b,c\n1,2\n3,4,5,6\n"))
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b", "c"}, doc.Header())
		assert.Equal(t, 2, doc.DataRowCount())
		assert.Equal(t, []string{"1", "2"}, doc.Rows[1])
		assert.Equal(t, []string{"3", "4", "5", "6"}, doc.Rows[2])
	})

	t.Run("quoted fields", func(t *testing.T) {
		doc, err := Parse(strings.NewReader("name,note\n\"Smith, J\",\"said \"\"hi\"\"\"\n"))
		require.NoError(t, err)

		assert.Equal(t, "Smith, J", doc.Rows[1][0])
		assert.Equal(t, `said "hi"`, doc.Rows[1][1])
	})

	t.Run("blank lines kept as empty rows", func(t *testing.T) {
		doc, err := Parse(strings.NewReader("a\n1\n\n2\r\n\n"))
		require.NoError(t, err)

		assert.Equal(t, [][]string{{"a"}, {"1"}, {}, {"2"}, {}}, doc.Rows)
		assert.Equal(t, 4, doc.DataRowCount())
	})

	t.Run("blank lines only", func(t *testing.T) {
		doc, err := Parse(strings.NewReader("\n\n"))
		require.NoError(t, err)

		assert.False(t, doc.IsEmpty())
		assert.Equal(t, [][]string{{}, {}}, doc.Rows)
	})

	t.Run("multiline quoted field before blank line", func(t *testing.T) {
		doc, err := Parse(strings.NewReader("a,b\n\"x\ny\",1\n\n2,3\n"))
		require.NoError(t, err)

		assert.Equal(t, [][]string{{"a", "b"}, {"x\ny", "1"}, {}, {"2", "3"}}, doc.Rows)
	})

	t.Run("empty input", func(t *testing.T) {
		doc, err := Parse(strings.NewReader(""))
		require.NoError(t, err)

		assert.True(t, doc.IsEmpty())
		assert.Nil(t, doc.Header())
		assert.Equal(t, 0, doc.DataRowCount())
	})
}

func TestEncode(t *testing.T) {
	doc := &Document{Rows: [][]string{{"a", "b"}, {"x,y", ""}}}

	t.Run("lf", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, doc.Encode(&buf, false))
		assert.Equal(t, "a,b\n\"x,y\",\n", buf.String())
	})

	t.Run("crlf", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, doc.Encode(&buf, true))
		assert.Equal(t, "a,b\r\n\"x,y\",\r\n", buf.String())
	})
}

func TestEnsureColumn(t *testing.T) {
	t.Run("appends and pads", func(t *testing.T) {
		doc := &Document{Rows: [][]string{{"name", "age"}, {"Alice", "30"}, {"Bob", "25"}}}

		idx, added, err := doc.EnsureColumn("verified")
		require.NoError(t, err)

		assert.True(t, added)
		assert.Equal(t, 2, idx)
		assert.Equal(t, []string{"name", "age", "verified"}, doc.Header())
		for _, row := range doc.Rows[1:] {
			assert.Len(t, row, 3)
			assert.Equal(t, "", row[2])
		}
	})

	t.Run("existing column", func(t *testing.T) {
		doc := &Document{Rows: [][]string{{"name", "label", "label"}, {"Alice", "x", "y"}}}

		idx, added, err := doc.EnsureColumn("label")
		require.NoError(t, err)

		assert.False(t, added)
		assert.Equal(t, 1, idx)
		assert.Len(t, doc.Header(), 3)
	})

	t.Run("short rows reach header width", func(t *testing.T) {
		doc := &Document{Rows: [][]string{{"a", "b", "c"}, {"1"}, {"1", "2", "3", "4"}}}

		_, _, err := doc.EnsureColumn("d")
		require.NoError(t, err)

		assert.Len(t, doc.Rows[1], 4)
		// long rows keep their cells and still receive the appended one
		assert.Equal(t, []string{"1", "2", "3", "4", ""}, doc.Rows[2])
	})

	t.Run("empty document", func(t *testing.T) {
		doc := &Document{}
		_, _, err := doc.EnsureColumn("x")
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}

func TestSetCell(t *testing.T) {
	newDoc := func() *Document {
		return &Document{Rows: [][]string{{"name", "label"}, {"Alice", ""}, {"Bob"}}}
	}

	t.Run("first data row", func(t *testing.T) {
		doc := newDoc()
		require.NoError(t, doc.SetCell(0, 1, "yes"))
		assert.Equal(t, []string{"Alice", "yes"}, doc.Rows[1])
	})

	t.Run("pads short row", func(t *testing.T) {
		doc := newDoc()
		require.NoError(t, doc.SetCell(1, 1, "no"))
		assert.Equal(t, []string{"Bob", "no"}, doc.Rows[2])
	})

	t.Run("pads every short row", func(t *testing.T) {
		doc := newDoc()
		require.NoError(t, doc.SetCell(0, 1, "yes"))
		for i, row := range doc.Rows {
			assert.Len(t, row, 2, "row %d", i)
		}
		assert.Equal(t, []string{"Bob", ""}, doc.Rows[2])
	})

	t.Run("out of range", func(t *testing.T) {
		for _, row := range []int{2, 10, -1, -2} {
			doc := newDoc()
			err := doc.SetCell(row, 1, "x")

			var rangeErr *RowRangeError
			require.True(t, errors.As(err, &rangeErr), "row %d", row)
			assert.Equal(t, row, rangeErr.Row)
			assert.Contains(t, err.Error(), "row index out of range")
		}
	})

	t.Run("empty document", func(t *testing.T) {
		doc := &Document{}
		assert.ErrorIs(t, doc.SetCell(0, 0, "x"), ErrEmptyDocument)
	})
}
