package system

import (
	"os"
	"strings"

	"xthi/internal/model"
)

// ShortHostname returns the host name with any domain suffix removed, capped
// to model.HostMaxLen. It returns model.NoValue when the name cannot be read.
func ShortHostname() string {
	name, err := os.Hostname()
	if err != nil {
		return model.NoValue
	}
	return shortName(name)
}

func shortName(name string) string {
	if len(name) > model.HostMaxLen {
		name = name[:model.HostMaxLen]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return model.NoValue
	}
	return name
}
