package main

import (
	"runtime/debug"
)

// version is set at startup based on the Go module used to build: the module
// version, or the VCS revision for development builds.
var version = "(devel)"

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = buildVersion(buildInfo)
}

func buildVersion(buildInfo *debug.BuildInfo) string {
	v := buildInfo.Main.Version
	if v != "(devel)" && v != "" {
		return v
	}
	var vcsRev, vcsMod string
	for _, setting := range buildInfo.Settings {
		if setting.Key == "vcs.revision" {
			vcsRev = setting.Value
		} else if setting.Key == "vcs.modified" {
			vcsMod = setting.Value
		}
	}
	if vcsRev == "" {
		return "(devel)"
	}
	switch vcsMod {
	case "false":
		return vcsRev
	case "true":
		return vcsRev + "+modifications"
	}
	return vcsRev + "+unknown"
}
