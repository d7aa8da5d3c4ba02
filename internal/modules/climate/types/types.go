package types

// Measurement is one daily observation row. Date is YYYY-MM-DD.
type Measurement struct {
	StationID     string   `json:"station"`
	Date          string   `json:"date"`
	Precipitation *float64 `json:"prcp"`
	Temperature   *float64 `json:"tobs"`
}

type Station struct {
	ID          string  `json:"id"`
	StationCode string  `json:"station"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Elevation   float64 `json:"elevation"`
}

// StationCount is the number of measurement rows recorded by one station.
type StationCount struct {
	StationID string
	Count     int
}

// Summary holds temperature aggregates. All fields are nil when no row
// matched the filter.
type Summary struct {
	Min     *float64 `json:"min"`
	Average *float64 `json:"average"`
	Max     *float64 `json:"max"`
}

// DateValues maps YYYY-MM-DD to a single observation value.
type DateValues map[string]float64

// StationCatalog maps a station code to [id, name, latitude, longitude, elevation].
type StationCatalog map[string][]any
