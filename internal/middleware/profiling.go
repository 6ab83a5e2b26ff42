package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
)

// ProfilingConfig gates the pprof endpoints. Enabled must stay false outside
// development: heap and goroutine dumps can leak review text and user ids.
type ProfilingConfig struct {
	Enabled     bool
	Environment string
}

const pprofPrefix = "/debug/pprof"

// pprof handlers that need their dedicated entry points. Everything else
// under the prefix, including named profiles like heap, goes through Index.
var pprofRoutes = map[string]http.HandlerFunc{
	pprofPrefix + "/cmdline": pprof.Cmdline,
	pprofPrefix + "/profile": pprof.Profile,
	pprofPrefix + "/symbol":  pprof.Symbol,
	pprofPrefix + "/trace":   pprof.Trace,
}

// Profiling mounts net/http/pprof under /debug/pprof when enabled. It refuses
// to serve profiles when Environment looks like production, regardless of the
// Enabled flag.
func Profiling(config ProfilingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled {
			return next
		}
		if config.Environment == "production" || config.Environment == "prod" {
			slog.Error("refusing to enable profiling endpoints in production",
				"environment", config.Environment,
			)
			return next
		}

		slog.Warn("profiling endpoints enabled",
			"environment", config.Environment,
			"endpoints", pprofPrefix+"/*",
		)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, pprofPrefix) {
				next.ServeHTTP(w, r)
				return
			}
			if h, ok := pprofRoutes[r.URL.Path]; ok {
				h(w, r)
				return
			}
			pprof.Index(w, r)
		})
	}
}
