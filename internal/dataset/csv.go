package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"incidentcast/pkg/errors"
)

// requiredColumns are the feature and label columns the loader refuses to
// proceed without.
var requiredColumns = append(FeatureColumns(), ColFatalities)

// Load reads every incident from the CSV at path. Rows without a parseable
// fatality count get a label of 0; this is the serving-side view.
func Load(path string) ([]Incident, error) {
	return load(path, false)
}

// LoadLabeled reads the CSV for training: rows with a missing or unparseable
// fatality label are excluded.
func LoadLabeled(path string) ([]Incident, error) {
	return load(path, true)
}

func load(path string, requireLabel bool) ([]Incident, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataError(path, nil, err.Error())
	}
	defer f.Close()

	// The source export is latin1-encoded.
	r := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, errors.NewDataError(path, nil, "cannot read header: "+err.Error())
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewDataError(path, missing, "")
	}

	field := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var incidents []Incident
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewDataError(path, nil, "malformed row: "+err.Error())
		}

		label, labelOK := parseFloat(field(row, ColFatalities))
		if requireLabel && !labelOK {
			continue
		}

		lat, _ := parseFloat(field(row, ColLatitude))
		lon, _ := parseFloat(field(row, ColLongitude))

		incidents = append(incidents, Incident{
			Year:       parseInt(field(row, ColYear)),
			Month:      parseInt(field(row, ColMonth)),
			Day:        parseInt(field(row, ColDay)),
			CountryID:  parseInt(field(row, ColCountryID)),
			Country:    textOrUnknown(field(row, ColCountry)),
			RegionID:   parseInt(field(row, ColRegionID)),
			Region:     textOrUnknown(field(row, ColRegion)),
			City:       textOrUnknown(field(row, ColCity)),
			Latitude:   lat,
			Longitude:  lon,
			AttackType: textOrUnknown(field(row, ColAttackType)),
			TargetType: textOrUnknown(field(row, ColTargetType)),
			WeaponType: textOrUnknown(field(row, ColWeaponType)),
			Summary:    field(row, ColSummary),
			Fatalities: label,
		})
	}

	if len(incidents) == 0 {
		return nil, errors.NewDataError(path, nil, "no usable rows")
	}
	return incidents, nil
}

func parseInt(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Some exports carry integer columns as floats.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return v
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func textOrUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
