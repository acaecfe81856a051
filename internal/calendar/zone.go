package calendar

import (
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // day boundaries must not depend on the host's zoneinfo
)

// JerusalemTZ is the zone whose civil day the feast calendar is reckoned in.
const JerusalemTZ = "Asia/Jerusalem"

var jerusalem = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation(JerusalemTZ)
	if err != nil {
		panic(fmt.Sprintf("load %s from embedded tzdata: %v", JerusalemTZ, err))
	}
	return loc
})

// Jerusalem returns the Asia/Jerusalem location.
func Jerusalem() *time.Location {
	return jerusalem()
}

// LoadLocation loads a named IANA zone. An empty name means Jerusalem.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == JerusalemTZ {
		return Jerusalem(), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
