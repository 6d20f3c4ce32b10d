// Package normalize canonicalizes externally supplied identifiers, mainly
// employee codes typed by admins or carried on edge payloads
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFKC normalization
// 3 Width fold fullwidth to ASCII
// 4 Remove zero-width and format chars
// 5 Uppercase
// 6 Strip whitespace
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFKC,
			width.Fold,                         // map fullwidth forms to ASCII
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
		)
	},
}

// Code returns the canonical form of an employee or device code
// empty input stays empty
func Code(s string) string {
	if s == "" {
		return ""
	}

	// 1 repair UTF-8 drop invalid bytes
	s = strings.ToValidUTF8(s, "")

	// 2-4 transform via pooled chain then reset and return it
	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	// 5 uppercase
	ns = strings.ToUpper(ns)

	// 6 strip all whitespace; codes never legitimately contain it
	var b strings.Builder
	b.Grow(len(ns))
	for _, r := range ns {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
