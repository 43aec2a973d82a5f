// Package charset converts symbol payload bytes to UTF-8, either through an
// ECI designator or by guessing the encoding of unlabeled bytes.
package charset

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Shift_JIS and GB18030 are used directly by the QR kanji and hanzi modes.
var (
	ShiftJIS encoding.Encoding = japanese.ShiftJIS
	GB18030  encoding.Encoding = simplifiedchinese.GB18030
)

// ecis maps ECI designators onto decoders; nil means the bytes pass through.
var ecis = map[int]encoding.Encoding{
	0: charmap.CodePage437, 2: charmap.CodePage437,
	1: charmap.ISO8859_1, 3: charmap.ISO8859_1,
	4: charmap.ISO8859_2, 5: charmap.ISO8859_3, 6: charmap.ISO8859_4,
	7: charmap.ISO8859_5, 8: charmap.ISO8859_6, 9: charmap.ISO8859_7,
	10: charmap.ISO8859_8, 11: charmap.ISO8859_9, 12: charmap.ISO8859_10,
	13: charmap.Windows874, 15: charmap.ISO8859_13, 16: charmap.ISO8859_14,
	17: charmap.ISO8859_15, 18: charmap.ISO8859_16,
	20: japanese.ShiftJIS,
	21: charmap.Windows1250, 22: charmap.Windows1251, 23: charmap.Windows1252,
	24: charmap.Windows1256,
	25: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	26: nil, 27: nil, 170: nil,
	28: traditionalchinese.Big5,
	29: simplifiedchinese.GB18030,
	30: korean.EUCKR,
}

// ForECI returns the decoder for an ECI designator. A nil encoding with ok
// set means UTF-8 or ASCII.
func ForECI(eci int) (enc encoding.Encoding, ok bool) {
	enc, ok = ecis[eci]
	return enc, ok
}

// Convert decodes b with enc. A nil enc, or bytes enc rejects, are returned unchanged.
func Convert(b []byte, enc encoding.Encoding) []byte {
	if enc == nil {
		return b
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return b
	}
	return out
}

// Guess picks UTF-8 (nil), Shift_JIS or ISO-8859-1 for unlabeled bytes.
func Guess(b []byte) encoding.Encoding {
	if utf8.Valid(b) {
		return nil
	}
	if plausibleShiftJIS(b) {
		return japanese.ShiftJIS
	}
	return charmap.ISO8859_1
}

// ToUTF8 converts with the ECI encoding when one was signalled and guesses otherwise.
func ToUTF8(b []byte, eci int) []byte {
	if enc, ok := ForECI(eci); ok {
		return Convert(b, enc)
	}
	return Convert(b, Guess(b))
}

// plausibleShiftJIS reports whether b is well formed Shift_JIS with at least
// one double byte character.
func plausibleShiftJIS(b []byte) bool {
	double := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c < 0x80 || (c >= 0xA1 && c <= 0xDF):
		case (c >= 0x81 && c <= 0x9F) || (c >= 0xE0 && c <= 0xEF):
			if i+1 >= len(b) {
				return false
			}
			t := b[i+1]
			if t < 0x40 || t == 0x7F || t > 0xFC {
				return false
			}
			double = true
			i++
		default:
			return false
		}
	}
	return double
}
