package geolife

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geolife2one/internal/config"
)

const pltHeader = `Geolife trajectory
WGS 84
Altitude is in Feet
Reserved 3
0,2,255,My Track,0,0,2,8421376
0
`

func writePLT(t *testing.T, root string, user string, name string, rows ...string) {
	t.Helper()
	dir := filepath.Join(root, user, "Trajectory")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := pltHeader + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParsePLT(t *testing.T) {
	fixes, err := ParsePLT(strings.NewReader(pltHeader +
		"39.984702,116.318417,0,492,39744.1201851852,2008-10-23,02:53:04\n" +
		"\n" +
		"39.984683,116.31845,0,-777,39744.1202546296,2008-10-23,02:53:10\n"))
	require.NoError(t, err)
	require.Len(t, fixes, 2)

	assert.Equal(t, 39.984702, fixes[0].Latitude)
	assert.Equal(t, 116.318417, fixes[0].Longitude)
	assert.Equal(t, 492.0, fixes[0].Altitude)
	assert.Equal(t, time.Date(2008, 10, 23, 2, 53, 4, 0, time.UTC), fixes[0].Time)
	assert.Equal(t, float64(InvalidAltitude), fixes[1].Altitude)
}

func TestParsePLTErrors(t *testing.T) {
	rows := []string{
		"39.9,116.3,0,492,39744.12",
		"north,116.3,0,492,39744.12,2008-10-23,02:53:04",
		"39.9,116.3,0,492,39744.12,2008-10-23,25:53:04",
	}
	for _, row := range rows {
		_, err := ParsePLT(strings.NewReader(pltHeader + row + "\n"))
		require.Error(t, err, row)
		assert.Contains(t, err.Error(), "line 7")
	}
}

func TestParsePLTKeepsOffGlobeFixes(t *testing.T) {
	fixes, err := ParsePLT(strings.NewReader(pltHeader +
		"400.1666667,116.3,0,492,39744.12,2008-10-23,02:53:04\n" +
		"39.9,116.3,0,492,39744.12,2008-10-23,02:53:10\n"))
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.False(t, fixes[0].Valid())
	assert.True(t, fixes[1].Valid())

	kept := Filter{}.Apply(fixes)
	require.Len(t, kept, 1)
	assert.Equal(t, fixes[1], kept[0])
}

func TestFindRootAndUsers(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "Geolife Trajectories 1.3", "Data")
	writePLT(t, root, "001", "20081024020959.plt")
	writePLT(t, root, "000", "20081023025304.plt")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notauser"), 0o755))

	found, err := FindRoot(dir)
	require.NoError(t, err)
	assert.Equal(t, root, found)

	users, err := Users(found)
	require.NoError(t, err)
	assert.Equal(t, []string{"000", "001"}, users)
}

func TestFindRootMissing(t *testing.T) {
	_, err := FindRoot(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoRoot))
}

func TestTrajectoryFilesSorted(t *testing.T) {
	root := t.TempDir()
	writePLT(t, root, "000", "20081024020959.plt")
	writePLT(t, root, "000", "20081023025304.plt")
	require.NoError(t, os.WriteFile(filepath.Join(root, "000", "Trajectory", "notes.txt"), nil, 0o644))

	files, err := TrajectoryFiles(root, "000")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "20081023025304.plt", filepath.Base(files[0]))
	assert.Equal(t, "20081024020959.plt", filepath.Base(files[1]))
}

func TestReadUser(t *testing.T) {
	root := t.TempDir()
	writePLT(t, root, "000", "20081024000000.plt", "39.9,116.3,0,10,0,2008-10-24,00:00:00")
	writePLT(t, root, "000", "20081023000000.plt", "39.8,116.2,0,10,0,2008-10-23,00:00:00")

	fixes, err := ReadUser(root, "000")
	require.NoError(t, err)
	require.Len(t, fixes, 2)
	assert.Equal(t, 39.8, fixes[0].Latitude)
}

func TestSelectUsers(t *testing.T) {
	users := []string{"000", "001", "002", "003"}
	assert.Equal(t, users, SelectUsers(users, 0, false, nil))
	assert.Equal(t, users, SelectUsers(users, 10, true, nil))
	assert.Equal(t, []string{"000", "001"}, SelectUsers(users, 2, false, nil))

	chosen := SelectUsers(users, 2, true, rand.New(rand.NewSource(1)))
	assert.Len(t, chosen, 2)
	assert.Subset(t, users, chosen)
	assert.IsNonDecreasing(t, chosen)
}

func TestFilterApply(t *testing.T) {
	day := time.Date(2008, 10, 23, 10, 0, 0, 0, time.UTC)
	fixes := []Fix{
		{Latitude: 39.9, Longitude: 116.3, Time: day},
		{Latitude: 10, Longitude: 116.3, Time: day},
		{Latitude: 39.9, Longitude: 116.3, Time: day.Add(24 * time.Hour)},
	}
	bounds := config.Presets["beijing"]

	assert.Len(t, Filter{}.Apply(fixes), 3)
	assert.Len(t, Filter{Bounds: &bounds}.Apply(fixes), 2)
	kept := Filter{Date: "2008-10-23", Bounds: &bounds}.Apply(fixes)
	require.Len(t, kept, 1)
	assert.Equal(t, fixes[0], kept[0])
}

func TestGroupByDay(t *testing.T) {
	base := time.Date(2008, 10, 23, 20, 0, 0, 0, time.UTC)
	fixes := []Fix{
		{Latitude: 1, Time: base.Add(time.Hour)},
		{Latitude: 2, Time: base},
		{Latitude: 3, Time: base.Add(5 * time.Hour)},
	}

	days, keys := GroupByDay(fixes, nil)
	assert.Equal(t, []string{"2008-10-23", "2008-10-24"}, keys)
	require.Len(t, days["2008-10-23"], 2)
	assert.Equal(t, 2.0, days["2008-10-23"][0].Latitude)

	shanghai := time.FixedZone("CST", 8*3600)
	_, keys = GroupByDay(fixes, shanghai)
	assert.Equal(t, []string{"2008-10-24"}, keys)
}
