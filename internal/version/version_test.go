// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package version

import "testing"

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.0.0", GitCommit: "abc1234", BuildTime: "2025-01-30T12:00:00Z"}
	want := "sitehub v1.0.0 (commit: abc1234, built: 2025-01-30T12:00:00Z)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInfoOrDefault(t *testing.T) {
	got := Info{}.OrDefault()
	if got.Version != "dev" || got.GitCommit != "unknown" || got.BuildTime != "unknown" {
		t.Errorf("OrDefault() = %+v", got)
	}

	kept := Info{Version: "v2"}.OrDefault()
	if kept.Version != "v2" {
		t.Errorf("OrDefault() replaced Version: %q", kept.Version)
	}
}
