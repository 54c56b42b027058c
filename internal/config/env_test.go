// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name     string
		setEnv   bool
		envValue string
		def      string
		want     string
	}{
		{name: "unset uses default", setEnv: false, def: "fallback", want: "fallback"},
		{name: "set uses env", setEnv: true, envValue: "from-env", def: "fallback", want: "from-env"},
		{name: "empty uses default", setEnv: true, envValue: "", def: "fallback", want: "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "RUNWIRE_TEST_STRING"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseString(key, tt.def); got != tt.want {
				t.Errorf("ParseString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name     string
		setEnv   bool
		envValue string
		def      int
		want     int
	}{
		{name: "unset uses default", setEnv: false, def: 42, want: 42},
		{name: "valid integer", setEnv: true, envValue: "7", def: 42, want: 7},
		{name: "invalid falls back", setEnv: true, envValue: "seven", def: 42, want: 42},
		{name: "empty falls back", setEnv: true, envValue: "", def: 42, want: 42},
		{name: "negative accepted", setEnv: true, envValue: "-3", def: 42, want: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "RUNWIRE_TEST_INT"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseInt(key, tt.def); got != tt.want {
				t.Errorf("ParseInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		name     string
		setEnv   bool
		envValue string
		def      bool
		want     bool
	}{
		{name: "unset uses default", setEnv: false, def: true, want: true},
		{name: "true", setEnv: true, envValue: "true", def: false, want: true},
		{name: "one", setEnv: true, envValue: "1", def: false, want: true},
		{name: "yes", setEnv: true, envValue: "YES", def: false, want: true},
		{name: "false", setEnv: true, envValue: "false", def: true, want: false},
		{name: "zero", setEnv: true, envValue: "0", def: true, want: false},
		{name: "invalid falls back", setEnv: true, envValue: "maybe", def: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "RUNWIRE_TEST_BOOL"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseBool(key, tt.def); got != tt.want {
				t.Errorf("ParseBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		setEnv   bool
		envValue string
		def      time.Duration
		want     time.Duration
	}{
		{name: "unset uses default", setEnv: false, def: 5 * time.Second, want: 5 * time.Second},
		{name: "valid duration", setEnv: true, envValue: "250ms", def: 5 * time.Second, want: 250 * time.Millisecond},
		{name: "invalid falls back", setEnv: true, envValue: "fast", def: 5 * time.Second, want: 5 * time.Second},
		{name: "bare number rejected", setEnv: true, envValue: "30", def: 5 * time.Second, want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "RUNWIRE_TEST_DURATION"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseDuration(key, tt.def); got != tt.want {
				t.Errorf("ParseDuration() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name     string
		setEnv   bool
		envValue string
		def      float64
		want     float64
	}{
		{name: "unset uses default", setEnv: false, def: 0.5, want: 0.5},
		{name: "valid float", setEnv: true, envValue: "0.25", def: 0.5, want: 0.25},
		{name: "invalid falls back", setEnv: true, envValue: "half", def: 0.5, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const key = "RUNWIRE_TEST_FLOAT"
			if tt.setEnv {
				t.Setenv(key, tt.envValue)
			}
			if got := ParseFloat(key, tt.def); got != tt.want {
				t.Errorf("ParseFloat() = %g, want %g", got, tt.want)
			}
		})
	}
}
