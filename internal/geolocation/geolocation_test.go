package geolocation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	locatorOnce sync.Once
	locator *Locator
	locatorErr error
)

func testLocator(t *testing.T) *Locator {
	t.Helper()
	if testing.Short() {
		t.Skip("loading geodata is slow")
	}
	locatorOnce.Do(func() {
		locator, locatorErr = New()
	})
	require.NoError(t, locatorErr)
	return locator
}

type fixedZones string

func (z fixedZones) GetTimezoneName(lng float64, lat float64) string {
	return string(z)
}

func TestLocateBeijing(t *testing.T) {
	l := testLocator(t)

	loc, err := l.Locate(39.984702, 116.318417)
	require.NoError(t, err)
	assert.Equal(t, "China", loc.Country)
	assert.Equal(t, "Asia/Shanghai", loc.TimeZone)
	assert.Equal(t, 39.984702, loc.Latitude)

	zone, err := l.TimeZone(39.984702, 116.318417)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", zone.String())
}

func TestLocateOpenSea(t *testing.T) {
	l := testLocator(t)

	loc, err := l.Locate(0, -140)
	require.NoError(t, err)
	assert.Empty(t, loc.Country)
	assert.Empty(t, loc.City)
}

func TestTimeZoneUnknownIsUTC(t *testing.T) {
	l := NewZoneLocator(fixedZones(""))
	zone, err := l.TimeZone(0, 0)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, zone)
}

func TestZoneLocatorHasNoPlaces(t *testing.T) {
	l := NewZoneLocator(fixedZones("Asia/Shanghai"))
	loc, err := l.Locate(39.9, 116.3)
	require.NoError(t, err)
	assert.Equal(t, Location{Latitude: 39.9, Longitude: 116.3, TimeZone: "Asia/Shanghai"}, loc)
}

func TestLoadZone(t *testing.T) {
	zone, err := LoadZone("Asia/Shanghai")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", zone.String())

	_, err = LoadZone("Not/AZone")
	assert.Error(t, err)
}
