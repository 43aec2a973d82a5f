package symbol

import (
	"fmt"
	"strings"
)

// Base is a barcode symbology.
type Base int

const (
	None    Base = 0
	EAN8    Base = 8
	UPCE    Base = 9
	ISBN10  Base = 10
	UPCA    Base = 12
	EAN13   Base = 13
	ISBN13  Base = 14
	I25     Base = 25
	Code39  Base = 39
	PDF417  Base = 57
	QRCode  Base = 64
	Code128 Base = 128
)

// partialCode is the packed value of a partial decode with no base symbology.
const partialCode = 1

// Bases lists every decodable symbology in ascending code order.
var Bases = []Base{EAN8, UPCE, ISBN10, UPCA, EAN13, ISBN13, I25, Code39, PDF417, QRCode, Code128}

var baseNames = map[Base]string{
	None:    "None",
	EAN8:    "EAN-8",
	UPCE:    "UPC-E",
	ISBN10:  "ISBN-10",
	UPCA:    "UPC-A",
	EAN13:   "EAN-13",
	ISBN13:  "ISBN-13",
	I25:     "I2/5",
	Code39:  "CODE-39",
	PDF417:  "PDF417",
	QRCode:  "QR-Code",
	Code128: "CODE-128",
}

var baseAliases = map[string]Base{
	"none": None, "all": None, "*": None,
	"ean8": EAN8, "upce": UPCE, "isbn10": ISBN10, "upca": UPCA,
	"ean13": EAN13, "isbn13": ISBN13,
	"i25": I25, "i2of5": I25, "itf": I25, "interleaved2of5": I25,
	"code39": Code39, "pdf417": PDF417,
	"qrcode": QRCode, "qr": QRCode,
	"code128": Code128,
}

func (b Base) String() string {
	if n, ok := baseNames[b]; ok {
		return n
	}
	return fmt.Sprintf("Base(%d)", int(b))
}

// Is2D reports whether b is a matrix or stacked symbology.
func (b Base) Is2D() bool { return b == QRCode || b == PDF417 }

// IsEAN reports whether b belongs to the EAN/UPC family.
func (b Base) IsEAN() bool {
	switch b {
	case EAN8, UPCE, ISBN10, UPCA, EAN13, ISBN13:
		return true
	}
	return false
}

// ParseBase resolves a symbology name such as "EAN-13", "ean13", "qr" or "i2/5".
func ParseBase(name string) (Base, error) {
	key := strings.ToLower(name)
	key = strings.NewReplacer("-", "", "_", "", " ", "", "/", "of").Replace(key)
	if b, ok := baseAliases[key]; ok {
		return b, nil
	}
	return None, fmt.Errorf("unknown symbology %q", name)
}

// AddOn is the EAN add-on attached to a primary EAN/UPC symbol.
type AddOn int

const (
	AddOnNone AddOn = iota
	AddOn2
	AddOn5
)

func (a AddOn) String() string {
	switch a {
	case AddOn2:
		return "+2"
	case AddOn5:
		return "+5"
	}
	return ""
}

// Digits returns the number of add-on digits.
func (a AddOn) Digits() int {
	switch a {
	case AddOn2:
		return 2
	case AddOn5:
		return 5
	}
	return 0
}

// Type is the full symbology classification of a decoded symbol.
type Type struct {
	Base    Base
	AddOn   AddOn
	Partial bool
}

// Code packs t into the integer form: base in bits 0-7, add-on digit count in bits 8-11.
// A partial decode without a base packs to 1.
func (t Type) Code() int {
	c := int(t.Base)
	if t.Base == None && t.Partial {
		c = partialCode
	}
	switch t.AddOn {
	case AddOn2:
		c |= 0x200
	case AddOn5:
		c |= 0x500
	}
	return c
}

// TypeFromCode unpacks an integer symbology code.
func TypeFromCode(code int) (Type, error) {
	var t Type
	base := Base(code & 0xff)
	switch {
	case base == partialCode:
		t.Partial = true
	case base == None:
	default:
		if _, ok := baseNames[base]; !ok {
			return Type{}, fmt.Errorf("unknown symbology code %#x", code)
		}
		t.Base = base
	}
	switch (code >> 8) & 0xf {
	case 0:
	case 2:
		t.AddOn = AddOn2
	case 5:
		t.AddOn = AddOn5
	default:
		return Type{}, fmt.Errorf("unknown add-on in code %#x", code)
	}
	if code&^0xfff != 0 {
		return Type{}, fmt.Errorf("unknown bits in symbology code %#x", code)
	}
	return t, nil
}

func (t Type) String() string {
	s := t.Base.String() + t.AddOn.String()
	if t.Partial {
		if t.Base == None {
			return "Partial"
		}
		s += " (partial)"
	}
	return s
}
