// Package similarity finds the two users whose daily activity times are
// most alike.
//
// Each activity time is placed on the unit circle (sine and cosine of the
// fraction of the day), so 23:59 and 00:01 are neighbours. A user's
// profile is the mean of those points; users are compared by the
// Euclidean distance between profiles.
package similarity

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const secondsPerDay = 86400

var (
	// ErrInvalidCSV is returned for anything that is not a two column
	// Users,Times file
	ErrInvalidCSV = errors.New("inappropriate file")
	// ErrNotEnoughUsers is returned when fewer than two distinct users remain
	ErrNotEnoughUsers = errors.New("at least two distinct users are required")
)

// Record is one parsed CSV row
type Record struct {
	User    string
	Seconds int
	Sin     float64
	Cos     float64
}

// Profile is the mean time vector of one user
type Profile struct {
	User string
	Sin  float64
	Cos  float64
}

// Result names the closest pair of users
type Result struct {
	User1    string  `json:"user1"`
	User2    string  `json:"user2"`
	Distance float64 `json:"distance"`
}

// ParseCSV reads Users,Times rows. The first row is a header and is skipped.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrInvalidCSV)
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		user := strings.TrimSpace(row[0])
		if user == "" {
			return nil, fmt.Errorf("%w: row %d: empty user", ErrInvalidCSV, i+2)
		}

		seconds, err := ParseClock(row[1])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidCSV, i+2, err)
		}

		records = append(records, NewRecord(user, seconds))
	}
	return records, nil
}

// ParseClock converts H:M:S into seconds from midnight. Each field may have
// one or two digits, so "8:5:3" and "08:05:03" are the same time.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: want H:M:S", s)
	}

	limits := [3]int{24, 60, 60}
	var fields [3]int
	for i, part := range parts {
		if len(part) < 1 || len(part) > 2 || strings.Trim(part, "0123456789") != "" {
			return 0, fmt.Errorf("invalid time %q: field %q", s, part)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n >= limits[i] {
			return 0, fmt.Errorf("invalid time %q: field %q out of range", s, part)
		}
		fields[i] = n
	}
	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}

// NewRecord computes the circular features for a time of day
func NewRecord(user string, seconds int) Record {
	angle := 2 * math.Pi * float64(seconds) / secondsPerDay
	return Record{
		User:    user,
		Seconds: seconds,
		Sin:     math.Sin(angle),
		Cos:     math.Cos(angle),
	}
}

// Profiles averages the records of each user. Users are ordered by name.
func Profiles(records []Record) []Profile {
	sins := make(map[string][]float64)
	coss := make(map[string][]float64)
	for _, rec := range records {
		sins[rec.User] = append(sins[rec.User], rec.Sin)
		coss[rec.User] = append(coss[rec.User], rec.Cos)
	}

	users := make([]string, 0, len(sins))
	for user := range sins {
		users = append(users, user)
	}
	sort.Strings(users)

	profiles := make([]Profile, len(users))
	for i, user := range users {
		profiles[i] = Profile{
			User: user,
			Sin:  stat.Mean(sins[user], nil),
			Cos:  stat.Mean(coss[user], nil),
		}
	}
	return profiles
}

// DistanceMatrix returns the pairwise Euclidean distances between profiles
func DistanceMatrix(profiles []Profile) [][]float64 {
	out := make([][]float64, len(profiles))
	for i := range profiles {
		out[i] = make([]float64, len(profiles))
		a := []float64{profiles[i].Sin, profiles[i].Cos}
		for j := range profiles {
			b := []float64{profiles[j].Sin, profiles[j].Cos}
			out[i][j] = floats.Distance(a, b, 2)
		}
	}
	return out
}

// ClosestPair scans the matrix in row-major order, ignoring the diagonal,
// and returns the first minimum
func ClosestPair(profiles []Profile, dist [][]float64) (Result, error) {
	if len(profiles) < 2 {
		return Result{}, ErrNotEnoughUsers
	}

	best := math.Inf(1)
	bi, bj := -1, -1
	for i := range dist {
		for j := range dist[i] {
			if i == j {
				continue
			}
			if dist[i][j] < best {
				best = dist[i][j]
				bi, bj = i, j
			}
		}
	}

	return Result{User1: profiles[bi].User, User2: profiles[bj].User, Distance: best}, nil
}

// Compute runs the whole pipeline on CSV data
func Compute(r io.Reader) (Result, error) {
	records, err := ParseCSV(r)
	if err != nil {
		return Result{}, err
	}

	profiles := Profiles(records)
	return ClosestPair(profiles, DistanceMatrix(profiles))
}

// ComputeFromCSV opens path and runs Compute on it
func ComputeFromCSV(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	defer f.Close()

	return Compute(f)
}
