// Package dataset loads the historical incident CSV and serves read-only
// queries over it. The file is read once; records never change at runtime.
package dataset

// Column names in the source CSV. The feature and label columns must be
// present; the descriptive columns fall back to defaults when absent.
const (
	ColYear       = "iyear"
	ColMonth      = "imonth"
	ColDay        = "iday"
	ColCountryID  = "country"
	ColCountry    = "country_txt"
	ColRegionID   = "region"
	ColRegion     = "region_txt"
	ColCity       = "city"
	ColLatitude   = "latitude"
	ColLongitude  = "longitude"
	ColAttackType = "attacktype1_txt"
	ColTargetType = "targtype1_txt"
	ColWeaponType = "weaptype1_txt"
	ColSummary    = "summary"
	ColFatalities = "nkill"
)

// FeatureColumns returns the model feature columns in their fixed order. The
// encoder, scaler, and model all depend on this order staying stable between
// training and serving.
func FeatureColumns() []string {
	return []string{
		ColYear, ColMonth, ColDay,
		ColCountryID, ColRegionID,
		ColAttackType, ColTargetType, ColWeaponType,
	}
}

// CategoricalColumns returns the columns that go through label encoding.
func CategoricalColumns() []string {
	return []string{ColAttackType, ColTargetType, ColWeaponType}
}

// Incident is one historical event. Immutable once loaded.
type Incident struct {
	Year  int
	Month int
	Day   int

	CountryID int
	Country   string
	RegionID  int
	Region    string
	City      string

	Latitude  float64
	Longitude float64

	AttackType string
	TargetType string
	WeaponType string
	Summary    string

	Fatalities float64
}

// Categoricals returns the record's categorical values in encoding order,
// matching CategoricalColumns.
func (in *Incident) Categoricals() []string {
	return []string{in.AttackType, in.TargetType, in.WeaponType}
}
