package utils

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
)

var tilePath = regexp.MustCompile(`^/tile/([0-9]+)/([0-9]+)/([0-9]+)/([0-9]+)/([0-9]+)\.(png)$`)

// TilePath is a parsed /tile/{continent}/{floor}/{z}/{x}/{y}.{ext} request.
type TilePath struct {
	Continent, Floor int
	Z, X, Y          int
	Ext              string
}

func ParsePath(path string) (TilePath, error) {
	matches := tilePath.FindStringSubmatch(path)
	if len(matches) != 7 {
		return TilePath{}, errors.New("could not match path")
	}
	var values [5]int
	for i := range values {
		v, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return TilePath{}, err
		}
		values[i] = v
	}
	return TilePath{
		Continent: values[0],
		Floor:     values[1],
		Z:         values[2],
		X:         values[3],
		Y:         values[4],
		Ext:       matches[6],
	}, nil
}

// FloatParam reads an optional finite float query parameter.
func FloatParam(q url.Values, key string, def float64) (float64, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be finite", key)
	}
	return v, nil
}

// IntParam reads an optional positive integer query parameter.
func IntParam(q url.Values, key string, def, max int) (int, error) {
	s := q.Get(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v <= 0 || v > max {
		return 0, fmt.Errorf("%s must be between 1 and %d", key, max)
	}
	return v, nil
}
