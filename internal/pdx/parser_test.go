package pdx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAreaFile(t *testing.T) {
	src := `
# Sweden
svealand_area = {
	1 2 3
}

ostergotland_area = { 4 5 }

finnmark_area = {
	color = { 10 20 30 }
	6 7
}
`
	root, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, root.Block, 3)

	svea := root.Child("svealand_area")
	require.NotNil(t, svea)
	assert.True(t, svea.IsBlock)
	ids, err := svea.Ints()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, "Sweden", svea.Comment)

	finn := root.Child("finnmark_area")
	ids, err = finn.Ints()
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7}, ids, "nested color block is not a province id")
	assert.Equal(t, []string{"10", "20", "30"}, finn.Child("color").Values())
}

func TestParseOperatorsAndStrings(t *testing.T) {
	src := `trigger = { num_of_cities >= 5 tag != SWE name = "New York" }
flag = yes`
	root, err := Parse(src)
	require.NoError(t, err)

	trig := root.Child("trigger")
	require.Len(t, trig.Block, 3)
	assert.Equal(t, ">=", trig.Block[0].Op)
	assert.Equal(t, "5", trig.Block[0].Value)
	assert.Equal(t, "!=", trig.Block[1].Op)
	assert.Equal(t, "New York", trig.ChildValue("name"))
	assert.True(t, root.Child("flag").Bool())
	assert.False(t, root.Child("missing").Bool())
}

func TestParsePositionComments(t *testing.T) {
	src := `#Stockholm
1={
	position={ 3085.000 1723.000 }
}
#Östergötland
2={
	position={ 3030.000 1683.000 }
}
3={ } # trailing comment is not a name
4={ }
`
	root, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "Stockholm", root.Child("1").Comment)
	assert.Equal(t, "Östergötland", root.Child("2").Comment)
	assert.Equal(t, "", root.Child("4").Comment)
}

func TestParseAnonymousBlocks(t *testing.T) {
	root, err := Parse(`list = { { a = 1 } { a = 2 } }`)
	require.NoError(t, err)
	list := root.Child("list")
	require.Len(t, list.Block, 2)
	assert.True(t, list.Block[1].IsBlock)
	assert.Equal(t, "2", list.Block[1].ChildValue("a"))
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"a = { 1 2":      "never closed",
		"a = 1 }":        "unexpected '}'",
		"a = ":           "expected a value",
		`a = "open`:      "unterminated string",
		"= 5":            "without a key",
		"a = { b = 1 }}": "unexpected '}'",
	}
	for src, want := range cases {
		_, err := Parse(src)
		require.Error(t, err, src)
		assert.Contains(t, err.Error(), want, src)
	}
}

func TestIntsRejectsWords(t *testing.T) {
	root, err := Parse("a = { 1 two }")
	require.NoError(t, err)
	_, err = root.Child("a").Ints()
	assert.Error(t, err)
}

func TestDecodeWindows1252(t *testing.T) {
	// "Östergötland" in Windows-1252
	raw := []byte{'#', 0xD6, 's', 't', 'e', 'r', 'g', 0xF6, 't', 'l', 'a', 'n', 'd', '\n', '2', '=', '{', '}'}
	text, enc, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, Windows1252, enc)
	assert.Equal(t, "#Östergötland\n2={}", text)

	back, err := Encode(text, enc)
	require.NoError(t, err)
	assert.Equal(t, raw, back)
}

func TestDecodeBOM(t *testing.T) {
	text, enc, err := Decode([]byte("\xEF\xBB\xBFl_english:\n"))
	require.NoError(t, err)
	assert.Equal(t, UTF8BOM, enc)
	assert.Equal(t, "l_english:\n", text)

	back, err := Encode(text, enc)
	require.NoError(t, err)
	assert.Equal(t, []byte("\xEF\xBB\xBFl_english:\n"), back)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	root, err := LoadOptional(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	assert.Nil(t, root)

	path := filepath.Join(dir, "area.txt")
	require.NoError(t, WriteText(path, "a = { 1 }", Windows1252))
	root, err = LoadOptional(path)
	require.NoError(t, err)
	assert.NotNil(t, root.Child("a"))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
