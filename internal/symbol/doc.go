// Package symbol defines decoded barcode symbols, their symbology types and
// the ordered result set returned from a scan.
//
// A symbology type is a tagged value: a Base symbology plus an optional EAN
// add-on and a partial-decode status. Type.Code and TypeFromCode convert to and
// from the packed integer form (base in the low byte, add-on in bits 8-11) used
// by persisted results of the zbar ecosystem.
package symbol
