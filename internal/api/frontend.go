package api

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"github.com/rs/zerolog/log"
)

// DevServerDown is the body returned when the dev server is unreachable.
const DevServerDown = "Vite dev server not running."

// DevProxy forwards every request to the frontend dev server at target.
func DevProxy(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse dev server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("dev server url %q must be absolute", target)
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Dev server unreachable")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(DevServerDown))
	}
	return proxy, nil
}

// StaticSite serves the built frontend from dir. Directories resolve to
// their index.html.
func StaticSite(dir string) (http.Handler, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("build directory %s not found. Run `bun run build` in client/", dir)
	}
	return http.FileServer(http.Dir(dir)), nil
}

// Frontend picks the dev proxy or the static site.
func Frontend(dev bool, devServerURL, buildDir string) (http.Handler, error) {
	if dev {
		log.Info().Str("target", devServerURL).Msg("Proxying frontend to dev server")
		return DevProxy(devServerURL)
	}
	log.Info().Str("dir", buildDir).Msg("Serving frontend build")
	return StaticSite(buildDir)
}
