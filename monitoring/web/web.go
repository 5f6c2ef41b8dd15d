// Package web holds the dashboard served by the monitor.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DevModeEnv names the variable that makes the monitor serve the dashboard
// from the source tree instead of the embedded copy.
const DevModeEnv = "CXLSIM_MONITOR_DEV"

//go:embed dist/*
var staticAssets embed.FS

// GetAssets returns the dashboard files.
func GetAssets() http.FileSystem {
	if isDevelopmentMode() {
		_, self, _, ok := runtime.Caller(0)
		if !ok {
			panic("error getting path")
		}

		dir := filepath.Join(filepath.Dir(self), "dist")
		logrus.Infof("monitor dev mode, serving assets from %s", dir)

		return http.Dir(dir)
	}

	sub, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

func isDevelopmentMode() bool {
	v, ok := os.LookupEnv(DevModeEnv)
	if !ok {
		return false
	}

	on, err := strconv.ParseBool(v)

	return err == nil && on
}
