// Reads the GeoLife trajectory dataset: finds its root directory, lists its users and parses their
// PLT trajectory files.
package geolife

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	dataDirName = "Data"
	trajectoryDirName = "Trajectory"
	pltExtension = ".plt"
	pltHeaderLines = 6
	pltTimeLayout = "2006-01-02 15:04:05"
	// InvalidAltitude marks a fix without a valid altitude.
	InvalidAltitude = -777
)

var ErrNoRoot = errors.New("no GeoLife data directory found")

// A single GPS fix from a PLT file.
type Fix struct {
	Latitude float64 // decimal degrees
	Longitude float64 // decimal degrees
	Altitude float64 // feet
	Time time.Time // UTC
}

// Valid reports whether the fix lies on the globe. The dataset has a few fixes that do not.
func (fix Fix) Valid() bool {
	return fix.Latitude >= -90 && fix.Latitude <= 90 && fix.Longitude >= -180 && fix.Longitude <= 180
}

// Finds the GeoLife data root, the directory named Data whose subdirectories hold a Trajectory
// directory per user.
// dir: the directory to search
// Returns the path of the data root or ErrNoRoot
func FindRoot(dir string) (string, error) {
	var root string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || d.Name() != dataDirName {
			return nil
		}
		users, err := Users(path)
		if err != nil {
			return err
		}
		if len(users) > 0 {
			root = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if root == "" {
		return "", fmt.Errorf("%w under %s", ErrNoRoot, dir)
	}
	return root, nil
}

// Lists the users under the data root in sorted order. A user is any directory containing a
// Trajectory directory.
// root: the data root
// Returns the user labels or any errors
func Users(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var users []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := os.Stat(filepath.Join(root, entry.Name(), trajectoryDirName))
		if err == nil && info.IsDir() {
			users = append(users, entry.Name())
		}
	}
	sort.Strings(users)
	return users, nil
}

// Chooses which users to import.
// users: all users, sorted
// n: number of users to keep; n <= 0 keeps everyone
// randomize: pick a random subset instead of the first n
// rng: source of randomness when randomize is set
// Returns the chosen users in sorted order
func SelectUsers(users []string, n int, randomize bool, rng *rand.Rand) []string {
	if n <= 0 || n >= len(users) {
		return users
	}
	if !randomize {
		return users[:n]
	}

	chosen := make([]string, 0, n)
	for _, i := range rng.Perm(len(users))[:n] {
		chosen = append(chosen, users[i])
	}
	sort.Strings(chosen)
	return chosen
}

// Lists the PLT files of a user. File names are the start time of the trajectory
// (YYYYMMDDhhmmss.plt) so lexical order is temporal order.
// root: the data root
// user: the user label
// Returns absolute paths of the trajectory files or any errors
func TrajectoryFiles(root string, user string) ([]string, error) {
	dir := filepath.Join(root, user, trajectoryDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), pltExtension) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Parses a PLT trajectory. The first six lines are a fixed header; each following line is
// lat,lon,0,altitude,days since 1899-12-30,date,time with date and time in GMT.
// r: the PLT content
// Returns the fixes in file order or an error naming the bad line
func ParsePLT(r io.Reader) ([]Fix, error) {
	var fixes []Fix
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= pltHeaderLines {
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fix, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		fixes = append(fixes, fix)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fixes, nil
}

// Parses one PLT file from disk.
func ReadPLT(path string) ([]Fix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fixes, err := ParsePLT(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return fixes, nil
}

func parseLine(line string) (Fix, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 7 {
		return Fix{}, fmt.Errorf("expected 7 fields, got %d", len(fields))
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Fix{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Fix{}, fmt.Errorf("longitude: %w", err)
	}
	alt, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Fix{}, fmt.Errorf("altitude: %w", err)
	}
	ts, err := time.ParseInLocation(pltTimeLayout, fields[5]+" "+fields[6], time.UTC)
	if err != nil {
		return Fix{}, fmt.Errorf("timestamp: %w", err)
	}
	return Fix{
		Latitude: lat,
		Longitude: lon,
		Altitude: alt,
		Time: ts,
	}, nil
}

// Reads every trajectory of a user.
// root: the data root
// user: the user label
// Returns all fixes of the user in temporal file order or any errors
func ReadUser(root string, user string) ([]Fix, error) {
	files, err := TrajectoryFiles(root, user)
	if err != nil {
		return nil, err
	}

	var fixes []Fix
	for _, file := range files {
		fileFixes, err := ReadPLT(file)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", user, err)
		}
		fixes = append(fixes, fileFixes...)
	}
	return fixes, nil
}
