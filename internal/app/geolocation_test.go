package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"geolife2one/internal/geolocation"
	"geolife2one/internal/store"
)

type zoneFunc func(lng float64, lat float64) string

func (f zoneFunc) GetTimezoneName(lng float64, lat float64) string {
	return f(lng, lat)
}

func fixedZone(name string) geolocation.ZoneFinder {
	return zoneFunc(func(lng float64, lat float64) string { return name })
}

func dayUsersOf(t *testing.T, a *App, user string) []store.DayUser {
	t.Helper()
	all, err := a.DayUsers(context.Background(), false)
	require.NoError(t, err)
	var found []store.DayUser
	for _, u := range all {
		if u.User == user {
			found = append(found, u)
		}
	}
	return found
}

func TestImportLocalTime(t *testing.T) {
	a := testApp(t)
	a.Config.LocalTime = true
	a.Locator = geolocation.NewZoneLocator(fixedZone("America/New_York"))
	ctx := context.Background()

	_, err := a.Import(ctx, ImportOptions{})
	require.NoError(t, err)

	users := dayUsersOf(t, a, "000")
	require.Len(t, users, 1)
	assert.Equal(t, "2008-10-22", users[0].Day)
	assert.Equal(t, int64(79200), users[0].Start)
	assert.Equal(t, int64(79323), users[0].End)
	assert.Equal(t, "America/New_York", users[0].Timezone)

	_, err = a.Homogenize(ctx, 5*time.Second)
	require.NoError(t, err)
	records, err := a.Store.HomogenizedAt(ctx, 79200, []int64{users[0].ID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 39.90, records[0].Latitude)
}

func TestImportLocateKeepsUserZone(t *testing.T) {
	a := testApp(t)
	writeUser(t, a.Config.DatasetDir, "003",
		"39.90,116.30,0,100,0,2008-10-23,02:00:00",
		"39.90,116.30,0,100,0,2008-10-23,02:00:10",
		"39.90,116.50,0,100,0,2008-10-24,02:00:00",
		"39.90,116.50,0,100,0,2008-10-24,02:00:10")
	a.Config.LocalTime = true
	a.Locator = geolocation.NewZoneLocator(zoneFunc(func(lng float64, lat float64) string {
		switch {
		case lng < 116.35:
			return "Asia/Hong_Kong"
		case lng > 116.45:
			return "Asia/Tokyo"
		}
		return "Asia/Shanghai"
	}))

	_, err := a.Import(context.Background(), ImportOptions{Locate: true})
	require.NoError(t, err)

	users := dayUsersOf(t, a, "003")
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, "Asia/Shanghai", u.Timezone, u.Day)
		assert.Equal(t, int64(36000), u.Start, u.Day)
	}
}

func TestLocateDayUsers(t *testing.T) {
	a := testApp(t)
	importAndHomogenize(t, a)
	a.Locator = geolocation.NewZoneLocator(fixedZone("Asia/Shanghai"))

	updated, err := a.LocateDayUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	for _, u := range dayUsersOf(t, a, "001") {
		assert.Equal(t, "Asia/Shanghai", u.Timezone)
	}
}

func TestExportWarnsOnTimeDeltaMismatch(t *testing.T) {
	a := testApp(t)
	importAndHomogenize(t, a)
	core, logs := observer.New(zapcore.WarnLevel)
	a.Logger = zap.New(core)
	ctx := context.Background()

	_, err := a.Export(ctx, ExportOptions{TimeDelta: 10 * time.Second, OutputDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("time delta does not match the homogenized records").Len())

	_, err = a.Export(ctx, ExportOptions{TimeDelta: 7 * time.Second, OutputDirectory: t.TempDir()})
	require.NoError(t, err)
	mismatches := logs.FilterMessage("time delta does not match the homogenized records").All()
	require.Len(t, mismatches, 1)
	assert.Equal(t, int64(7), mismatches[0].ContextMap()["time_delta"])
	assert.Equal(t, int64(5), mismatches[0].ContextMap()["homogenized_time_delta"])
}

func TestImportDropsOffGlobeFixes(t *testing.T) {
	a := testApp(t)
	writeUser(t, a.Config.DatasetDir, "003",
		"400.1666667,116.30,0,100,0,2008-10-23,02:00:00",
		"39.95,116.35,0,100,0,2008-10-23,02:00:10")

	result, err := a.Import(context.Background(), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Users: 4, DayUsers: 4, Records: 11}, result)

	users := dayUsersOf(t, a, "003")
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].Count)
}
