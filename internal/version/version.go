package version

import (
	"fmt"
	"runtime"

	"orderboard/internal/dto"
)

// Set via -ldflags "-X orderboard/internal/version.version=...".
var (
	version   = "dev"
	commit    = "unknown"
	branch    = "unknown"
	buildTime = "unknown"
)

func Info() dto.VersionResponse {
	return dto.VersionResponse{
		Version:   version,
		Commit:    commit,
		Branch:    branch,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

func String() string {
	return fmt.Sprintf("version=%s commit=%s branch=%s buildTime=%s go=%s",
		version, commit, branch, buildTime, runtime.Version())
}
