package symbol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_CodeMatchesPackedValues(t *testing.T) {
	tests := []struct {
		typ  Type
		code int
	}{
		{Type{Base: EAN13}, 13},
		{Type{Base: EAN13, AddOn: AddOn2}, 0x20d},
		{Type{Base: UPCA, AddOn: AddOn5}, 0x50c},
		{Type{Partial: true}, 1},
		{Type{Base: QRCode}, 64},
		{Type{Base: Code128}, 128},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.typ.Code())
			back, err := TypeFromCode(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, back)
		})
	}
}

func TestTypeFromCode_Rejects(t *testing.T) {
	for _, code := range []int{7, 0x30d, 0x100d, 200} {
		_, err := TypeFromCode(code)
		assert.Error(t, err, "code %#x", code)
	}
}

func TestType_CodeProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("add-on never changes the base byte", prop.ForAll(
		func(bi, ai int) bool {
			typ := Type{Base: Bases[bi], AddOn: AddOn(ai)}
			return typ.Code()&0xff == int(typ.Base)
		},
		gen.IntRange(0, len(Bases)-1),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}

func TestParseBase(t *testing.T) {
	for name, want := range map[string]Base{
		"EAN-13": EAN13, "ean8": EAN8, "UPC-E": UPCE, "I2/5": I25, "qr": QRCode,
		"QR-Code": QRCode, "code_128": Code128, "CODE-39": Code39, "ISBN-10": ISBN10, "none": None,
	} {
		got, err := ParseBase(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseBase("datamatrix")
	assert.Error(t, err)
}

func TestSet_OrderAndFilter(t *testing.T) {
	a := &Symbol{Type: Type{Base: EAN13}, Data: []byte("4006381333931")}
	b := &Symbol{Type: Type{Base: QRCode}, Data: []byte("hello")}
	set := NewSet(a, b)

	var got []string
	for sym := range set.All() {
		got = append(got, sym.Text())
	}
	assert.Equal(t, []string{"4006381333931", "hello"}, got)

	only2D := set.Filter(func(s *Symbol) bool { return s.Type.Base.Is2D() })
	require.Equal(t, 1, only2D.Len())
	assert.Same(t, b, only2D.At(0))

	var empty *Set
	assert.Equal(t, 0, empty.Len())
}

func TestSymbol_WithCountCopies(t *testing.T) {
	a := &Symbol{Type: Type{Base: Code39}, Data: []byte("ABC"), Count: -1}
	b := a.WithCount(2)
	b.Data[0] = 'X'
	assert.Equal(t, "ABC", a.Text())
	assert.Equal(t, -1, a.Count)
	assert.Equal(t, 2, b.Count)
}

func TestSymbol_Bounds(t *testing.T) {
	s := &Symbol{Points: []Point{{10, 5}, {30, 5}, {30, 20}, {10, 20}}}
	r := s.Bounds()
	assert.Equal(t, 10, r.Min.X)
	assert.Equal(t, 5, r.Min.Y)
	assert.Equal(t, 31, r.Max.X)
	assert.Equal(t, 21, r.Max.Y)
}

func TestXMLExport(t *testing.T) {
	sym := &Symbol{
		Type:        Type{Base: EAN13, AddOn: AddOn5},
		Data:        []byte("9780306406157"),
		Quality:     3,
		Orientation: OrientUp,
	}
	out, err := sym.XML()
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, `type="EAN-13+5"`)
	assert.Contains(t, s, `quality="3"`)
	assert.Contains(t, s, `<![CDATA[9780306406157]]>`)
	assert.NotContains(t, s, "count=")

	bin := &Symbol{Type: Type{Base: QRCode}, Data: []byte{0xff, 0x00}, Count: 2}
	out, err = bin.XML()
	require.NoError(t, err)
	assert.Contains(t, string(out), `format="base64"`)
	assert.Contains(t, string(out), `count="2"`)

	doc := NewDocument()
	doc.Add("a.png", 0, NewSet(sym))
	doc.Add("a.png", 1, NewSet())
	var buf bytes.Buffer
	_, err = doc.WriteTo(&buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))
	assert.Contains(t, buf.String(), XMLNamespace)
	assert.Equal(t, 1, strings.Count(buf.String(), "<source "))
	assert.Equal(t, 2, strings.Count(buf.String(), "<index "))
}

func TestRecord_Base64ForBinary(t *testing.T) {
	r := (&Symbol{Type: Type{Base: PDF417}, Data: []byte{0xc3, 0x28}}).Record()
	assert.Equal(t, "base64", r.Encoding)
	assert.Equal(t, "PDF417", r.Type)
}
