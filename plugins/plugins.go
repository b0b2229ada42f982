// Package plugins holds the built-in responders.
package plugins

import (
	"github.com/bjaus/monitor"
)

// Register installs every built-in responder on r.
func Register(r *monitor.Router) []*monitor.Definition {
	return []*monitor.Definition{
		Ping(r),
		Echo(r),
		Help(r),
		Weather(r, WeatherConfig{}),
	}
}
