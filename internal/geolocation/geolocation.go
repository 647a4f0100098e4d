// Locates day users: reverse geocodes their centroid to a country and city and finds the IANA time
// zone it lies in.
// Both lookups run offline. Country and city polygons come from rgeo's embedded Natural Earth data,
// time zone polygons from the tzf-rel release decoded with protobuf.
package geolocation

import (
	"errors"
	"fmt"
	"time"

	"github.com/ringsaturn/tzf"
	tzfrel "github.com/ringsaturn/tzf-rel"
	"github.com/ringsaturn/tzf/pb"
	"github.com/sams96/rgeo"
	"google.golang.org/protobuf/proto"
)

type Location struct {
	Latitude float64 // latitude of the location
	Longitude float64 // longitude of the location
	City string // city name of the location
	Country string // country name of the location
	TimeZone string // IANA name of the time zone location is located in
}

// A source of IANA time zone names. tzf finders satisfy it.
type ZoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// Resolves coordinates into places and time zones.
type Locator struct {
	geocoder *rgeo.Rgeo
	zones ZoneFinder
}

// Loads the country, city and time zone polygons. This is slow and should be run only once.
// Returns a locator or any errors
func New() (*Locator, error) {
	geocoder, err := rgeo.New(rgeo.Countries10, rgeo.Cities10)
	if err != nil {
		return nil, fmt.Errorf("failed to load geocoding data: %w", err)
	}

	input := &pb.Timezones{}
	if err := proto.Unmarshal(tzfrel.LiteData, input); err != nil {
		return nil, fmt.Errorf("failed to decode time zone data: %w", err)
	}
	finder, err := tzf.NewFinderFromPB(input)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone data: %w", err)
	}

	return &Locator{geocoder: geocoder, zones: finder}, nil
}

// Builds a locator that only knows time zones. Its Locate leaves country and city empty.
func NewZoneLocator(zones ZoneFinder) *Locator {
	return &Locator{zones: zones}
}

// Finds the place and time zone of a coordinate. Points outside of any country, such as the
// open sea, get an empty country and city but still a time zone when one is known.
// latitude: decimal degrees
// longitude: decimal degrees
// Returns the location or any errors
func (l *Locator) Locate(latitude float64, longitude float64) (Location, error) {
	location := Location{
		Latitude: latitude,
		Longitude: longitude,
		TimeZone: l.zones.GetTimezoneName(longitude, latitude),
	}

	if l.geocoder == nil {
		return location, nil
	}
	place, err := l.geocoder.ReverseGeocode([]float64{longitude, latitude})
	if errors.Is(err, rgeo.ErrLocationNotFound) {
		return location, nil
	}
	if err != nil {
		return location, err
	}
	location.Country = place.Country
	location.City = place.City
	return location, nil
}

// Loads the time zone of a coordinate.
// Returns the zone, UTC when none is known, or any errors
func (l *Locator) TimeZone(latitude float64, longitude float64) (*time.Location, error) {
	return LoadZone(l.zones.GetTimezoneName(longitude, latitude))
}

// Loads an IANA zone by name; an empty name is UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
