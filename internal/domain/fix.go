package domain

import "time"

// Fix is one GPS reading reported by a device.
type Fix struct {
	Latitude  float64
	Longitude float64
	Speed     *float64
	Heading   *float64
	Altitude  *float64
	Accuracy  *float64
	// RecordedAt is the device capture time; zero means "now" on arrival.
	RecordedAt time.Time
}

// Telemetry is the device state sent alongside a fix.
type Telemetry struct {
	BatteryLevel *float64
	NetworkType  NetworkType
}

// ValidCoordinates reports whether lat/lon are on the globe.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
