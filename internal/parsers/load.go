package parsers

import (
	"math"
	"strconv"
	"strings"
)

// LoadAverages holds the 1, 5 and 15 minute run-queue averages.
type LoadAverages struct {
	Load1  float64
	Load5  float64
	Load15 float64
}

// ParseLoad reads the three leading load averages from a /proc/loadavg line,
// e.g. "0.10 0.25 0.30 1/200 1234". Anything after the third field is ignored.
// BSD-style `sysctl -n vm.loadavg` output ("{ 0.10 0.25 0.30 }") is also accepted.
func ParseLoad(text string) (LoadAverages, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) > 0 && fields[0] == "{" {
		fields = fields[1:]
	}
	if len(fields) < 3 {
		return LoadAverages{}, newParseError("load",
			"expected three load averages, got "+strconv.Itoa(len(fields))+" fields", text, nil)
	}

	var vals [3]float64
	for i := 0; i < 3; i++ {
		val, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return LoadAverages{}, newParseError("load", "field "+strconv.Itoa(i+1)+" is not a number", text, err)
		}
		if val < 0 || math.IsNaN(val) || math.IsInf(val, 0) {
			return LoadAverages{}, newParseError("load", "field "+strconv.Itoa(i+1)+" is out of range", text, nil)
		}
		vals[i] = val
	}

	return LoadAverages{Load1: vals[0], Load5: vals[1], Load15: vals[2]}, nil
}
