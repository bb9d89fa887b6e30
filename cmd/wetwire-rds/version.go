package main

import "runtime/debug"

// version is set at release time: -ldflags "-X main.version=v1.0.0".
var version = ""

// getVersion returns the ldflags version, then the module version recorded by
// "go install @version", then "dev" with the VCS revision when one is known.
func getVersion() string {
	if version != "" {
		return version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev" + revisionSuffix(info.Settings)
}

// revisionSuffix returns "+<short revision>" from the build settings, with
// "-dirty" appended for a modified tree.
func revisionSuffix(settings []debug.BuildSetting) string {
	var revision string
	var modified bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if revision == "" {
		return ""
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if modified {
		revision += "-dirty"
	}
	return "+" + revision
}
