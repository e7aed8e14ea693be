// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version describes the running build.
package version

import "fmt"

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"commit"`
	BuildTime string `json:"built"`
}

// OrDefault fills fields the linker left empty.
func (i Info) OrDefault() Info {
	if i.Version == "" {
		i.Version = "dev"
	}
	if i.GitCommit == "" {
		i.GitCommit = "unknown"
	}
	if i.BuildTime == "" {
		i.BuildTime = "unknown"
	}
	return i
}

func (i Info) String() string {
	i = i.OrDefault()
	return fmt.Sprintf("sitehub %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildTime)
}
