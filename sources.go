package geoworld

import (
	"archive/zip"
	"bufio"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/andreiashu/geoworld/bake"
	"github.com/andreiashu/geoworld/world"
)

// Geonames file names looked up under Config.DataDir. Each may also be
// present with a .bz2 suffix.
const (
	countryInfoFile = "countryInfo.txt"
	admin1File      = "admin1CodesASCII.txt"
	citiesFile      = "cities1000.zip"
)

// continentNames maps Geonames continent codes to the names used in region
// keys.
var continentNames = map[string]string{
	"AF": "Africa",
	"AN": "Antarctica",
	"AS": "Asia",
	"EU": "Europe",
	"NA": "North America",
	"OC": "Oceania",
	"SA": "South America",
}

// CountryInfo is the part of a Geonames countryInfo.txt row the baker needs.
type CountryInfo struct {
	ISO        string
	ISO3       string
	Name       string
	Capital    string
	Continent  string // full name, e.g. "Europe"
	Population int64
}

// LoadCountryInfo parses a Geonames countryInfo.txt file. Comment lines and
// rows without 19 tab-separated fields are skipped.
func LoadCountryInfo(path string) ([]CountryInfo, error) {
	r, closeFn, err := openOptionallyBzippedFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var out []CountryInfo
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		t := scanner.Text()
		if len(t) == 0 || t[0] == '#' {
			continue
		}
		fields := strings.SplitN(t, "\t", 19)
		if len(fields) != 19 || fields[0] == "" || fields[4] == "" {
			continue
		}
		continent, ok := continentNames[fields[8]]
		if !ok {
			continent = fields[8]
		}
		pop, _ := strconv.ParseInt(fields[7], 10, 64)
		out = append(out, CountryInfo{
			ISO:        fields[0],
			ISO3:       fields[1],
			Name:       fields[4],
			Capital:    fields[5],
			Continent:  continent,
			Population: pop,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no countries", path)
	}
	return out, nil
}

// CountryRecords converts country info rows into baker records.
func CountryRecords(infos []CountryInfo) []bake.CountryRecord {
	out := make([]bake.CountryRecord, 0, len(infos))
	for _, ci := range infos {
		out = append(out, bake.CountryRecord{Continent: ci.Continent, Name: ci.Name})
	}
	return out
}

// LoadCities reads Geonames city rows from a cities zip archive or a plain
// (optionally bzipped) TSV file. Rows with unparseable coordinates are skipped
// rather than placed at (0,0).
func LoadCities(path string, minPopulation int64) ([]world.Place, error) {
	if strings.HasSuffix(path, ".zip") {
		rz, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("opening zip file: %w", err)
		}
		defer rz.Close()

		var out []world.Place
		for _, uF := range rz.File {
			places, err := readZipEntry(uF, minPopulation)
			if err != nil {
				return nil, err
			}
			out = append(out, places...)
		}
		return out, nil
	}

	r, closeFn, err := openOptionallyBzippedFile(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return scanCities(r, minPopulation)
}

// readZipEntry reads one archive member. Split out so the deferred close runs
// per entry.
func readZipEntry(uF *zip.File, minPopulation int64) ([]world.Place, error) {
	fi, err := uF.Open()
	if err != nil {
		return nil, fmt.Errorf("opening file in zip: %w", err)
	}
	defer fi.Close()
	return scanCities(fi, minPopulation)
}

func scanCities(r io.Reader, minPopulation int64) ([]world.Place, error) {
	var out []world.Place
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", 19)
		if len(fields) != 19 {
			continue
		}
		lat, errLat := strconv.ParseFloat(fields[4], 64)
		lng, errLng := strconv.ParseFloat(fields[5], 64)
		if errLat != nil || errLng != nil {
			continue
		}
		pop, _ := strconv.ParseInt(fields[14], 10, 64)
		name := strings.TrimSpace(fields[1])
		if name == "" || pop < minPopulation {
			continue
		}
		out = append(out, world.NewPlace(name, fields[7], lng, lat, pop))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cities: %w", err)
	}
	return out, nil
}

// openOptionallyBzippedFile opens file+".bz2" when present and file
// otherwise. A path already ending in .bz2 is decompressed directly.
func openOptionallyBzippedFile(file string) (io.Reader, func() error, error) {
	if strings.HasSuffix(file, ".bz2") {
		fh, err := os.Open(file)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", file, err)
		}
		return bzip2.NewReader(fh), fh.Close, nil
	}
	fh, err := os.Open(file + ".bz2")
	if err != nil {
		fh, err = os.Open(file)
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", file, err)
		}
		return fh, fh.Close, nil
	}
	return bzip2.NewReader(fh), fh.Close, nil
}
