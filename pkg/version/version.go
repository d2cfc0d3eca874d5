package version

import (
	"time"

	"github.com/carlmjohnson/versioninfo"
)

// Release can be set at link time with -ldflags "-X github.com/armory/halyard/pkg/version.Release=...".
var Release = ""

type GitInfo struct {
	Commit     string    `json:"commit"`
	Dirty      bool      `json:"dirty"`
	LastCommit time.Time `json:"lastCommit"`
}

type Info struct {
	Release string  `json:"release"`
	Git     GitInfo `json:"git"`
}

func Get() *Info {
	release := Release
	if release == "" {
		release = versioninfo.Version
	}

	return &Info{
		Release: release,
		Git: GitInfo{
			Commit:     versioninfo.Revision,
			Dirty:      versioninfo.DirtyBuild,
			LastCommit: versioninfo.LastCommit,
		},
	}
}
