// Package region derives stable identifiers for geographic features.
//
// A region is identified by a normalized hierarchical key such as
// "continent-europe-country-france". The 64-bit Hash is a djb2 digest of that
// key and is recomputed on load; only the key is ever persisted.
package region

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Level names used when building hierarchical keys.
const (
	LevelContinent = "continent"
	LevelCountry   = "country"
	LevelProvince  = "province"
)

// Hash is the process-independent identity of a region.
type Hash uint64

// ID pairs a normalized key with its hash.
type ID struct {
	Key  string
	Hash Hash
}

// MakeID builds the ID for a feature named name at the given level below parentKey.
// Empty parts are skipped, so continents pass an empty parentKey.
func MakeID(parentKey, level, name string) ID {
	parts := make([]string, 0, 3)
	for _, p := range []string{parentKey, level, name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return FromKey(Normalize(strings.Join(parts, " ")))
}

// FromKey wraps an already normalized key.
func FromKey(key string) ID {
	return ID{Key: key, Hash: HashKey(key)}
}

// HashKey computes the djb2 digest of key.
func HashKey(key string) Hash {
	h := uint64(5381)
	for i := 0; i < len(key); i++ {
		h = h*33 + uint64(key[i])
	}
	return Hash(h)
}

// IsZero reports whether the ID has no key.
func (id ID) IsZero() bool { return id.Key == "" }

func (id ID) String() string { return id.Key }

// MarshalBinary persists the key only.
func (id ID) MarshalBinary() ([]byte, error) {
	return []byte(id.Key), nil
}

// UnmarshalBinary restores the key and recomputes the hash. An empty key
// decodes to the zero ID.
func (id *ID) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		*id = ID{}
		return nil
	}
	*id = FromKey(string(b))
	return nil
}

// foldCase lower-cases with Unicode rules. cases.Caser is not safe for
// concurrent use, so Normalize creates its own.
func foldCase() cases.Caser { return cases.Lower(language.Und) }

// Normalize turns a display name into a key fragment: diacritics folded,
// lower-cased, punctuation stripped (hyphens kept), whitespace turned into
// single hyphens.
//
// "Côte d'Ivoire" becomes "cote-divoire".
func Normalize(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = norm.NFC.String(s)
	}
	folded = foldCase().String(folded)

	var b strings.Builder
	b.Grow(len(folded))
	sep := false
	for _, r := range folded {
		switch {
		case r == '-' || unicode.IsSpace(r):
			sep = b.Len() > 0
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped
		default:
			if sep {
				b.WriteByte('-')
				sep = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
