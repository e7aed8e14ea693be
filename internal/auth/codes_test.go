// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"regexp"
	"testing"
)

func TestGenerateVerificationCode(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateVerificationCode()
		if err != nil {
			t.Fatalf("GenerateVerificationCode: %v", err)
		}
		if !re.MatchString(code) {
			t.Fatalf("code %q is not 6 digits", code)
		}
	}
}

func TestGenerateResetToken(t *testing.T) {
	token, hash, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken: %v", err)
	}
	if token == hash {
		t.Error("token must not be stored in clear")
	}
	if HashResetToken(token) != hash {
		t.Error("HashResetToken(token) does not match the returned hash")
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64", len(hash))
	}
}
