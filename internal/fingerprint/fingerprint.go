// Package fingerprint implements the three-layer document identity model:
// a content hash over the raw PDF bytes, a structural fingerprint of
// (page number, sheet number) pairs, and metadata equality. Overlap scoring
// between structural fingerprints decides whether two uploads are revisions
// of the same plan set.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/tbrennem-source/plancheck/internal/types"
)

// Pair is the unit of structural identity. SheetNumber is "" when the page's
// sheet number could not be read; such pages still count, at half weight.
type Pair struct {
	PageNumber  int    `json:"page_number"`
	SheetNumber string `json:"sheet_number,omitempty"`
}

// Weight returns 1.0 for a sheet-numbered pair, 0.5 otherwise.
func (p Pair) Weight() float64 {
	if p.SheetNumber != "" {
		return 1.0
	}
	return 0.5
}

// Fingerprint is an ordered structural fingerprint, sorted by page number.
type Fingerprint []Pair

// ContentHash computes the layer-1 identity over raw PDF bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashReader computes the content hash from a stream. Callers record a
// hash-failed flag on error instead of blocking the upload.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash pdf bytes: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sheetScanPattern finds sheet-number-shaped tokens in free text, used as a
// fallback when the explicit sheet number field is empty.
var sheetScanPattern = regexp.MustCompile(`[A-Za-z]\d+\.\d+`)

// Extract computes the layer-2 structural fingerprint from page extractions,
// sorted by page number. An empty extraction list yields an empty
// fingerprint: a hollow session is never fingerprinted.
func Extract(extractions []types.PageExtraction) Fingerprint {
	if len(extractions) == 0 {
		return Fingerprint{}
	}

	fp := make(Fingerprint, 0, len(extractions))
	for _, e := range extractions {
		sheet := strings.ToUpper(strings.TrimSpace(e.SheetNumber))
		if sheet == "" {
			if m := sheetScanPattern.FindString(e.SheetName); m != "" {
				sheet = strings.ToUpper(m)
			}
		}
		fp = append(fp, Pair{PageNumber: e.PageNumber, SheetNumber: sheet})
	}
	sort.Slice(fp, func(i, j int) bool { return fp[i].PageNumber < fp[j].PageNumber })
	return fp
}
