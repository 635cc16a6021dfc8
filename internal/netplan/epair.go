package netplan

import (
	"fmt"
	"strconv"
	"strings"
)

// maxEpairScan bounds the linear scan for a free epair index so a corrupt
// or enormous enumeration can't spin forever.
const maxEpairScan = 100000

// NextEpairName scans existing for the first free monotonic index N such
// that neither "epair<N>a" nor "epair<N>b" is already present, and returns
// that pair's two member names. existing is whatever the host adapter's
// current interface enumeration reports — this package has no opinion on
// how that list was gathered.
func NextEpairName(existing []string) (a, b string, err error) {
	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[name] = true
	}

	for n := 0; n < maxEpairScan; n++ {
		cand := "epair" + strconv.Itoa(n)
		a, b = cand+"a", cand+"b"
		if !taken[a] && !taken[b] {
			return a, b, nil
		}
	}
	return "", "", ErrEpairExhausted
}

// EpairIndex extracts N from an "epair<N>a"/"epair<N>b" name, or -1 if name
// doesn't match that shape.
func EpairIndex(name string) int {
	if !strings.HasPrefix(name, "epair") {
		return -1
	}
	rest := strings.TrimPrefix(name, "epair")
	if len(rest) == 0 {
		return -1
	}
	suffix := rest[len(rest)-1]
	if suffix != 'a' && suffix != 'b' {
		return -1
	}
	n, err := strconv.Atoi(rest[:len(rest)-1])
	if err != nil {
		return -1
	}
	return n
}

func epairName(n int) string {
	return fmt.Sprintf("epair%d", n)
}
