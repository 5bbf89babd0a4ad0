package tour

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrTooFewCities  = errors.New("a tour needs at least three cities")
	ErrDuplicateCity = errors.New("duplicate city name")
	ErrBadCoordinate = errors.New("city coordinate must be finite")
	ErrZeroPerimeter = errors.New("all cities share one location")
)

type City struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Matrix holds pairwise Euclidean distances indexed by city position.
type Matrix [][]float64

func NewMatrix(cities []City) Matrix {
	m := make(Matrix, len(cities))
	for i := range cities {
		m[i] = make([]float64, len(cities))
		for j := range cities {
			m[i][j] = math.Hypot(cities[i].X-cities[j].X, cities[i].Y-cities[j].Y)
		}
	}
	return m
}

// Distance is the length of the closed tour, including the leg back to the
// first city.
func (m Matrix) Distance(tour []int) float64 {
	if len(tour) < 2 {
		return 0
	}
	total := 0.0
	for i := range tour {
		total += m[tour[i]][tour[(i+1)%len(tour)]]
	}
	return total
}

// ValidateCities checks the size, names and coordinates of a city set.
func ValidateCities(cities []City) error {
	if len(cities) < 3 {
		return fmt.Errorf("%w: got %d", ErrTooFewCities, len(cities))
	}
	seen := make(map[string]struct{}, len(cities))
	for i, c := range cities {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("city %d: name is required", i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCity, c.Name)
		}
		seen[c.Name] = struct{}{}
		if math.IsNaN(c.X) || math.IsNaN(c.Y) || math.IsInf(c.X, 0) || math.IsInf(c.Y, 0) {
			return fmt.Errorf("%w: %s", ErrBadCoordinate, c.Name)
		}
	}
	first := cities[0]
	for _, c := range cities[1:] {
		if c.X != first.X || c.Y != first.Y {
			return nil
		}
	}
	return fmt.Errorf("%w: (%g, %g)", ErrZeroPerimeter, first.X, first.Y)
}

// IsPermutation reports whether tour visits each of n cities exactly once.
func IsPermutation(tour []int, n int) bool {
	if len(tour) != n {
		return false
	}
	seen := make([]bool, n)
	for _, city := range tour {
		if city < 0 || city >= n || seen[city] {
			return false
		}
		seen[city] = true
	}
	return true
}

// Rotate returns tour shifted so that it begins with first.
func Rotate(tour []int, first int) []int {
	out := make([]int, 0, len(tour))
	at := 0
	for i, city := range tour {
		if city == first {
			at = i
			break
		}
	}
	out = append(out, tour[at:]...)
	out = append(out, tour[:at]...)
	return out
}

var builtinCities = map[string][][2]float64{
	"exam-11": {
		{0, 0}, {3, 27}, {14, 22}, {1, 13}, {20, 3}, {20, 16},
		{28, 12}, {30, 31}, {11, 19}, {7, 3}, {10, 25},
	},
}

// BuiltinNames lists the city sets accepted by Builtin.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinCities))
	for name := range builtinCities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a named city set. Cities are named 1..n in input order.
func Builtin(name string) ([]City, error) {
	coords, ok := builtinCities[name]
	if !ok {
		return nil, fmt.Errorf("unknown built-in city set: %s", name)
	}
	cities := make([]City, len(coords))
	for i, xy := range coords {
		cities[i] = City{Name: strconv.Itoa(i + 1), X: xy[0], Y: xy[1]}
	}
	return cities, nil
}

// Decode reads a JSON array of {"name","x","y"} objects.
func Decode(r io.Reader) ([]City, error) {
	var cities []City
	if err := json.NewDecoder(r).Decode(&cities); err != nil {
		return nil, fmt.Errorf("decode cities: %w", err)
	}
	if err := ValidateCities(cities); err != nil {
		return nil, err
	}
	return cities, nil
}

func LoadFile(path string) ([]City, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cities, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cities, nil
}
