package parsers

import (
	"bufio"
	"strconv"
	"strings"
)

// MemoryReading is used and total memory in megabytes.
// Present is false when the output had no memory summary at all; the
// numbers are then zero and should be stored as unknown, not as zero.
type MemoryReading struct {
	UsedMB  float64
	TotalMB float64
	Present bool
}

const kbPerMB = 1024

// ParseMemory reads used and total memory from `free -k` output.
// The "Mem:" row carries total then used, both in kilobytes:
//
//	               total        used        free      shared  buff/cache   available
//	Mem:        16384000     8192000     4096000      102400     4096000     7900000
//
// If there is no "Mem:" row but the text is /proc/meminfo, used is derived
// from MemTotal and MemAvailable. Output with neither yields a reading with
// Present set to false and no error.
func ParseMemory(text string) (MemoryReading, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "Mem:" {
			continue
		}
		if len(fields) < 3 {
			return MemoryReading{}, newParseError("memory", "Mem: row has fewer than two values", scanner.Text(), nil)
		}

		totalKB, err := parseKB(fields[1])
		if err != nil {
			return MemoryReading{}, newParseError("memory", "total is not a number", scanner.Text(), err)
		}
		usedKB, err := parseKB(fields[2])
		if err != nil {
			return MemoryReading{}, newParseError("memory", "used is not a number", scanner.Text(), err)
		}
		return newReading(usedKB, totalKB, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return MemoryReading{}, newParseError("memory", "unreadable output", "", err)
	}

	if strings.Contains(text, "MemTotal:") {
		return parseMeminfo(text)
	}

	return MemoryReading{}, nil
}

// parseMeminfo handles /proc/meminfo, where every value is in kB.
func parseMeminfo(text string) (MemoryReading, error) {
	var memTotal, memFree, memAvailable, buffers, cached int64
	var haveTotal, haveAvailable bool

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		key := strings.TrimSuffix(parts[0], ":")
		val, err := parseKB(parts[1])
		if err != nil {
			if key == "MemTotal" {
				return MemoryReading{}, newParseError("memory", "MemTotal is not a number", scanner.Text(), err)
			}
			continue
		}

		switch key {
		case "MemTotal":
			memTotal = val
			haveTotal = true
		case "MemFree":
			memFree = val
		case "MemAvailable":
			memAvailable = val
			haveAvailable = true
		case "Buffers":
			buffers = val
		case "Cached":
			cached = val
		}
	}
	if err := scanner.Err(); err != nil {
		return MemoryReading{}, newParseError("memory", "unreadable output", "", err)
	}
	if !haveTotal {
		return MemoryReading{}, nil
	}

	used := memTotal - memFree - buffers - cached
	if haveAvailable {
		used = memTotal - memAvailable
	}
	if used < 0 {
		used = 0
	}
	return newReading(used, memTotal, "MemTotal: "+strconv.FormatInt(memTotal, 10))
}

func parseKB(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func newReading(usedKB, totalKB int64, line string) (MemoryReading, error) {
	if usedKB > totalKB {
		return MemoryReading{}, newParseError("memory", "used exceeds total", line, nil)
	}
	return MemoryReading{
		UsedMB:  float64(usedKB) / kbPerMB,
		TotalMB: float64(totalKB) / kbPerMB,
		Present: true,
	}, nil
}
