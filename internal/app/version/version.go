package version

import "runtime"

// Overridden at build time:
//
//	go build -ldflags "-X essops/internal/app/version.buildVersion=1.4.0 -X essops/internal/app/version.builtAt=$(date -u +%FT%TZ)"
var (
	buildVersion = "dev"
	builtAt      = "unknown"
)

// Info represents the running binary's build metadata.
type Info struct {
	BuildVersion string `json:"buildVersion"`
	BuiltAt      string `json:"builtAt"`
	GoVersion    string `json:"goVersion"`
}

func Get() Info {
	return Info{
		BuildVersion: buildVersion,
		BuiltAt:      builtAt,
		GoVersion:    runtime.Version(),
	}
}

// String renders the metadata for --version output.
func (i Info) String() string {
	return i.BuildVersion + " (built " + i.BuiltAt + ", " + i.GoVersion + ")"
}
