package geoworld

import (
	"bufio"
	"fmt"
	"strings"
)

// AdminDivision is a first-level administrative division (state, province,
// region) from Geonames admin1CodesASCII.txt.
type AdminDivision struct {
	Country string // ISO code, e.g. "FR"
	Code    string // admin1 code, e.g. "11"
	Name    string
}

// AdminDivisions maps country code to division code to division.
type AdminDivisions map[string]map[string]AdminDivision

// LoadAdminDivisions parses admin1CodesASCII.txt.
// Format: CC.CODE<tab>Name<tab>AsciiName<tab>GeonameId
func LoadAdminDivisions(path string) (AdminDivisions, error) {
	r, closeFn, err := openOptionallyBzippedFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	out := make(AdminDivisions)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		cc, code, ok := strings.Cut(fields[0], ".")
		if !ok {
			continue
		}
		if out[cc] == nil {
			out[cc] = make(map[string]AdminDivision)
		}
		out[cc][strings.ToUpper(code)] = AdminDivision{Country: cc, Code: code, Name: fields[1]}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}

// Lookup resolves a division by country and code. A code of the form
// "CC.CODE" carries its own country and cc may be empty.
func (a AdminDivisions) Lookup(cc, code string) (AdminDivision, bool) {
	if c, rest, ok := strings.Cut(code, "."); ok {
		cc, code = c, rest
	}
	if cc == "" {
		cc = a.Country(code)
	}
	div, ok := a[strings.ToUpper(cc)][strings.ToUpper(code)]
	return div, ok
}

// Country returns the country owning code when exactly one country has a
// division with that code, and "" otherwise. "TX" resolves to "US"; "08" is
// ambiguous.
func (a AdminDivisions) Country(code string) string {
	code = strings.ToUpper(code)
	var match string
	for cc, divisions := range a {
		if _, ok := divisions[code]; ok {
			if match != "" {
				return ""
			}
			match = cc
		}
	}
	return match
}
