package nanocam

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

const DefaultDevicePattern = "/dev/video*"

var deviceNumberRe = regexp.MustCompile(`(\d+)$`)

// ScanDevices lists V4L2 device nodes matching pattern, ordered by their
// trailing device number.
func ScanDevices(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultDevicePattern
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("scanning devices: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool {
		return deviceNumber(matches[i]) < deviceNumber(matches[j])
	})

	devices := make([]string, 0, len(matches))
	for _, m := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}
		devices = append(devices, m)
	}
	return devices, nil
}

// deviceNumber returns the trailing number of a device path, or -1.
func deviceNumber(path string) int {
	match := deviceNumberRe.FindStringSubmatch(path)
	if match == nil {
		return -1
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return -1
	}
	return n
}
