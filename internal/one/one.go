// Converts homogenized records into the ONE simulator's external movement format.
//
// The file starts with a header line
//
//	minTime maxTime minX maxX minY maxY minZ maxZ
//
// followed by one "time address x y" line per host and time step. Addresses run from 0 to n-1 and
// coordinates live in a grid whose origin is the north-west corner of the extent.
package one

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"geolife2one/internal/config"
	"geolife2one/internal/store"
)

const movementExtension = ".plt"

var (
	ErrOutOfExtent = errors.New("record outside of the simulation extent")
	ErrUnknownUser = errors.New("record of a user that was not selected")
)

// The first line of an external movement file.
type Header struct {
	MinTime int64
	MaxTime int64
	MinX float64
	MaxX float64
	MinY float64
	MaxY float64
	MinZ float64
	MaxZ float64
}

func (h Header) String() string {
	return fmt.Sprintf("%d %d %s %s %s %s %s %s", h.MinTime, h.MaxTime,
		formatFloat(h.MinX), formatFloat(h.MaxX),
		formatFloat(h.MinY), formatFloat(h.MaxY),
		formatFloat(h.MinZ), formatFloat(h.MaxZ))
}

// Maps geographic records to ONE hosts and grid coordinates.
type Converter struct {
	Extent config.Bounds
	Scale float64 // grid units per decimal degree
	NormalizedMaxX float64
	NormalizedMaxY float64
	UserToAddr map[int64]int
}

// Creates a converter.
// extent: the geographic area mapped onto the grid
// scale: grid units per decimal degree
// users: the selected day users; sorted ids are assigned addresses 0..n-1
// Returns the converter
func NewConverter(extent config.Bounds, scale float64, users []int64) *Converter {
	sorted := make([]int64, len(users))
	copy(sorted, users)
	sort.Slice(sorted, func(i int, j int) bool { return sorted[i] < sorted[j] })

	userToAddr := make(map[int64]int, len(sorted))
	for _, id := range sorted {
		if _, ok := userToAddr[id]; !ok {
			userToAddr[id] = len(userToAddr)
		}
	}

	return &Converter{
		Extent: extent,
		Scale: scale,
		NormalizedMaxX: (extent.East - extent.West) * scale,
		NormalizedMaxY: (extent.North - extent.South) * scale,
		UserToAddr: userToAddr,
	}
}

// Header for a movement file spanning minTime to maxTime seconds.
func (c *Converter) Header(minTime int64, maxTime int64) Header {
	return Header{
		MinTime: minTime,
		MaxTime: maxTime,
		MaxX: c.NormalizedMaxX,
		MaxY: c.NormalizedMaxY,
	}
}

// Normalizes a geographic position into grid coordinates.
// Returns x, y or ErrOutOfExtent
func (c *Converter) Normalize(latitude float64, longitude float64) (float64, float64, error) {
	if !c.Extent.Contains(latitude, longitude) {
		return 0, 0, fmt.Errorf("%w: %f,%f", ErrOutOfExtent, latitude, longitude)
	}
	x := (longitude - c.Extent.West) * c.Scale
	y := (c.Extent.North - latitude) * c.Scale
	return x, y, nil
}

// Converts a record into a movement line.
// Returns the line without a trailing newline, ErrOutOfExtent or ErrUnknownUser
func (c *Converter) Convert(r store.HomogenizedRecord) (string, error) {
	addr, ok := c.UserToAddr[r.DayUserID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownUser, r.DayUserID)
	}
	x, y, err := c.Normalize(r.Latitude, r.Longitude)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d %s %s", r.Time, addr, formatFloat(x), formatFloat(y)), nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Picks the path of the next movement file in dir. Movement files are numbered 0.plt, 1.plt, ...;
// the directory is created when missing.
// dir: the output directory
// Returns the path for the new movement file or any errors
func NextMovementFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return filepath.Join(dir, "0"+movementExtension), nil
	}
	if err != nil {
		return "", err
	}

	next := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, movementExtension) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, movementExtension))
		if err != nil || n < 0 {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return filepath.Join(dir, strconv.Itoa(next)+movementExtension), nil
}
