package symbol

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"
)

// XMLNamespace is the barcode result schema namespace.
const XMLNamespace = "http://zbar.sourceforge.net/2008/barcode"

// Record is the serialisable form of a Symbol.
type Record struct {
	Type        string  `json:"type" yaml:"type"`
	Code        int     `json:"code" yaml:"code"`
	AddOn       string  `json:"addon,omitempty" yaml:"addon,omitempty"`
	Data        string  `json:"data" yaml:"data"`
	Encoding    string  `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Quality     int     `json:"quality" yaml:"quality"`
	Count       int     `json:"count" yaml:"count"`
	Orientation string  `json:"orientation" yaml:"orientation"`
	Points      []Point `json:"points,omitempty" yaml:"points,omitempty"`
}

// Record converts s to its serialisable form. Payloads that are not valid UTF-8
// are base64 encoded.
func (s *Symbol) Record() Record {
	r := Record{
		Type:        s.Type.Base.String(),
		Code:        s.Type.Code(),
		AddOn:       s.Type.AddOn.String(),
		Quality:     s.Quality,
		Count:       s.Count,
		Orientation: s.Orientation.String(),
		Points:      s.Points,
	}
	if utf8.Valid(s.Data) {
		r.Data = string(s.Data)
	} else {
		r.Data = base64.StdEncoding.EncodeToString(s.Data)
		r.Encoding = "base64"
	}
	return r
}

// Records converts every symbol in the set.
func (s *Set) Records() []Record {
	out := make([]Record, 0, s.Len())
	for sym := range s.All() {
		out = append(out, sym.Record())
	}
	return out
}

type xmlData struct {
	Format string `xml:"format,attr,omitempty"`
	Length int    `xml:"length,attr,omitempty"`
	Text   string `xml:",cdata"`
}

type xmlSymbol struct {
	XMLName     xml.Name `xml:"symbol"`
	Type        string   `xml:"type,attr"`
	Quality     int      `xml:"quality,attr"`
	Orientation string   `xml:"orientation,attr,omitempty"`
	Count       *int     `xml:"count,attr,omitempty"`
	Data        xmlData  `xml:"data"`
}

type xmlIndex struct {
	Num     int         `xml:"num,attr"`
	Symbols []xmlSymbol `xml:"symbol"`
}

type xmlSource struct {
	Href    string     `xml:"href,attr,omitempty"`
	Indexes []xmlIndex `xml:"index"`
}

type xmlBarcodes struct {
	XMLName xml.Name    `xml:"barcodes"`
	Xmlns   string      `xml:"xmlns,attr"`
	Sources []xmlSource `xml:"source"`
}

func (s *Symbol) toXML() xmlSymbol {
	x := xmlSymbol{
		Type:    s.Type.String(),
		Quality: s.Quality,
	}
	if s.Orientation != OrientUnknown {
		x.Orientation = s.Orientation.String()
	}
	if s.Count != 0 {
		c := s.Count
		x.Count = &c
	}
	if utf8.Valid(s.Data) && !strings.Contains(string(s.Data), "]]>") {
		x.Data.Text = string(s.Data)
	} else {
		x.Data.Format = "base64"
		x.Data.Length = len(s.Data)
		x.Data.Text = base64.StdEncoding.EncodeToString(s.Data)
	}
	return x
}

// XML renders a single symbol element.
func (s *Symbol) XML() ([]byte, error) {
	return xml.Marshal(s.toXML())
}

// Document accumulates scan results per source for XML export.
type Document struct {
	doc xmlBarcodes
}

// NewDocument starts an empty result document.
func NewDocument() *Document {
	return &Document{doc: xmlBarcodes{Xmlns: XMLNamespace}}
}

// Add records the results of one image (index) of source href.
func (d *Document) Add(href string, index int, set *Set) {
	var src *xmlSource
	for i := range d.doc.Sources {
		if d.doc.Sources[i].Href == href {
			src = &d.doc.Sources[i]
		}
	}
	if src == nil {
		d.doc.Sources = append(d.doc.Sources, xmlSource{Href: href})
		src = &d.doc.Sources[len(d.doc.Sources)-1]
	}
	idx := xmlIndex{Num: index}
	for sym := range set.All() {
		idx.Symbols = append(idx.Symbols, sym.toXML())
	}
	src.Indexes = append(src.Indexes, idx)
}

// WriteTo writes the indented XML document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	out, err := xml.MarshalIndent(d.doc, "", "  ")
	if err != nil {
		return 0, err
	}
	out = append([]byte(xml.Header), out...)
	out = append(out, '\n')
	n, err := w.Write(out)
	return int64(n), err
}
