package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	serrors "simlink/internal/errors"
)

// BuiltinVersion names the engine compiled into this binary.
const BuiltinVersion = "builtin"

// Installation is one engine release available on this host.
type Installation struct {
	Version    string
	Executable string
}

// SelectInstallation picks the installation for the requested version.
// An empty version selects the latest one.  With no installations
// configured, this binary itself serves as the BuiltinVersion engine.
func SelectInstallation(installs []Installation, version string) (Installation, error) {
	if len(installs) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return Installation{}, serrors.Resource("installation", "select", err)
		}
		if version != "" && version != BuiltinVersion {
			return Installation{}, serrors.Resource("installation", "select",
				fmt.Errorf("version %q is not installed (only %s)", version, BuiltinVersion))
		}
		return Installation{Version: BuiltinVersion, Executable: exe}, nil
	}

	if version == "" {
		best := installs[0]
		for _, in := range installs[1:] {
			if compareVersions(in.Version, best.Version) > 0 {
				best = in
			}
		}
		return best, nil
	}

	for _, in := range installs {
		if in.Version == version {
			return in, nil
		}
	}
	known := make([]string, len(installs))
	for i, in := range installs {
		known[i] = in.Version
	}
	return Installation{}, serrors.Resource("installation", "select",
		fmt.Errorf("version %q is not installed (have %s)", version, strings.Join(known, ", ")))
}

// compareVersions orders dotted release names such as "6.1" or
// "5.6a".  Each component compares numerically, then by suffix.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if c := compareComponent(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func compareComponent(a, b string) int {
	an, asuf := splitNumeric(a)
	bn, bsuf := splitNumeric(b)
	switch {
	case an < bn:
		return -1
	case an > bn:
		return 1
	}
	return strings.Compare(asuf, bsuf)
}

func splitNumeric(s string) (int, string) {
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if i < 0 {
		i = len(s)
	}
	n, _ := strconv.Atoi(s[:i])
	return n, s[i:]
}
