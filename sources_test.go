package geoworld

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tsv(fields ...string) string {
	row := make([]string, 19)
	copy(row, fields)
	return strings.Join(row, "\t")
}

func countryRow(iso, iso3, name, continent, pop string) string {
	return tsv(iso, iso3, "0", "", name, "", "0", pop, continent)
}

func cityRow(name, code, lat, lng, pop string) string {
	return tsv("1", name, name, "", lat, lng, "P", code, "", "", "", "", "", "", pop)
}

var countryInfoText = strings.Join([]string{
	"#ISO\tISO3\tISO-Numeric\tfips\tCountry",
	countryRow("FR", "FRA", "France", "EU", "67000000"),
	countryRow("DE", "DEU", "Germany", "EU", "83000000"),
	countryRow("JP", "JPN", "Japan", "AS", "125000000"),
	countryRow("XX", "XXX", "Nowhere", "ZZ", "0"),
	"broken row",
	"",
}, "\n")

var admin1Text = strings.Join([]string{
	"FR.32\tHauts-de-France\tHauts-de-France\t11071624",
	"FR.11\tÎle-de-France\tIle-de-France\t3012874",
	"DE.11\tLand Berlin\tBerlin\t2950157",
	"US.TX\tTexas\tTexas\t4736286",
	"nodot\tIgnored",
}, "\n")

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeCitiesZip(dir string, rows ...string) (string, error) {
	path := filepath.Join(dir, citiesFile)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create("cities1000.txt")
	if err != nil {
		return "", err
	}
	if _, err := w.Write([]byte(strings.Join(rows, "\n"))); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return path, f.Close()
}

func TestLoadCountryInfo(t *testing.T) {
	path := writeFile(t, t.TempDir(), countryInfoFile, countryInfoText)
	got, err := LoadCountryInfo(path)
	if err != nil {
		t.Fatalf("LoadCountryInfo() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d countries, want 4", len(got))
	}
	if got[0].Name != "France" || got[0].Continent != "Europe" || got[0].Population != 67000000 {
		t.Errorf("France = %+v", got[0])
	}
	if got[2].Continent != "Asia" {
		t.Errorf("Japan continent = %q", got[2].Continent)
	}
	if got[3].Continent != "ZZ" {
		t.Errorf("unknown continent code should pass through, got %q", got[3].Continent)
	}

	recs := CountryRecords(got)
	if len(recs) != 4 || recs[1].Name != "Germany" || recs[1].Continent != "Europe" {
		t.Errorf("CountryRecords() = %+v", recs)
	}
}

func TestLoadCountryInfoErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadCountryInfo(filepath.Join(dir, "missing.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
	empty := writeFile(t, dir, "empty.txt", "# only a comment\n")
	if _, err := LoadCountryInfo(empty); err == nil {
		t.Error("file without countries should fail")
	}
}

func TestAdminDivisions(t *testing.T) {
	path := writeFile(t, t.TempDir(), admin1File, admin1Text)
	a, err := LoadAdminDivisions(path)
	if err != nil {
		t.Fatalf("LoadAdminDivisions() error = %v", err)
	}

	tests := []struct {
		cc, code string
		want     string
		ok       bool
	}{
		{"FR", "32", "Hauts-de-France", true},
		{"fr", "32", "Hauts-de-France", true},
		{"", "FR.11", "Île-de-France", true},
		{"", "tx", "Texas", true},
		{"", "11", "", false}, // FR and DE both have 11
		{"DE", "99", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.cc+"/"+tt.code, func(t *testing.T) {
			div, ok := a.Lookup(tt.cc, tt.code)
			if ok != tt.ok || div.Name != tt.want {
				t.Errorf("Lookup(%q, %q) = %q, %v; want %q, %v", tt.cc, tt.code, div.Name, ok, tt.want, tt.ok)
			}
		})
	}

	if got := a.Country("TX"); got != "US" {
		t.Errorf("Country(TX) = %q, want US", got)
	}
	if got := a.Country("11"); got != "" {
		t.Errorf("Country(11) = %q, want ambiguous", got)
	}
}

func TestLoadCities(t *testing.T) {
	dir := t.TempDir()
	rows := []string{
		cityRow("Lille", "PPLA", "8", "5", "230000"),
		cityRow("Hamlet", "PPL", "2", "2", "40"),
		cityRow("Broken", "PPL", "north", "5", "1000"),
		cityRow(" ", "PPL", "1", "1", "1000"),
		"short\trow",
	}

	zipped, err := writeCitiesZip(dir, rows...)
	if err != nil {
		t.Fatal(err)
	}
	got, err := LoadCities(zipped, 0)
	if err != nil {
		t.Fatalf("LoadCities(zip) error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d places, want 2", len(got))
	}
	lille := got[0]
	if lille.Name != "Lille" || lille.Kind() != "PPLA" || lille.Location.X != 5 || lille.Location.Y != 8 {
		t.Errorf("Lille = %+v kind %q", lille, lille.Kind())
	}

	plain := writeFile(t, dir, "cities.txt", strings.Join(rows, "\n"))
	got, err = LoadCities(plain, 1000)
	if err != nil {
		t.Fatalf("LoadCities(plain) error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "Lille" {
		t.Errorf("population filter kept %v", got)
	}
}

func TestOpenOptionallyBzippedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plain.txt", "hello")
	r, closeFn, err := openOptionallyBzippedFile(path)
	if err != nil {
		t.Fatalf("open plain: %v", err)
	}
	buf := make([]byte, 5)
	if _, err := r.Read(buf); err != nil || string(buf) != "hello" {
		t.Errorf("read %q, %v", buf, err)
	}
	if err := closeFn(); err != nil {
		t.Error(err)
	}

	if _, _, err := openOptionallyBzippedFile(filepath.Join(dir, "nope.txt")); err == nil {
		t.Error("missing file should fail")
	}
	if _, _, err := openOptionallyBzippedFile(filepath.Join(dir, "nope.txt.bz2")); err == nil {
		t.Error("missing .bz2 file should fail")
	}
}
