package logging

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "none", want: None},
		{input: "error", want: Error},
		{input: "warn", want: Warning},
		{input: "warning", want: Warning},
		{input: "info", want: Info},
		{input: "debug", want: Debug},
		{input: "DEBUG", want: Debug},
		{input: "loud", want: Info, wantErr: true},
		{input: "", want: Info, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseLevel(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseLevel(%q) = %d, want %d", tc.input, got, tc.want)
			}
		})
	}
}

func TestSetLevelClamps(t *testing.T) {
	defer SetLevel(Info)
	SetLevel(-5)
	if GetLevel() != None {
		t.Errorf("GetLevel = %d, want None", GetLevel())
	}
	SetLevel(99)
	if GetLevel() != Debug {
		t.Errorf("GetLevel = %d, want Debug", GetLevel())
	}
}

func TestLogfRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(io.Discard)
	defer SetLevel(Info)

	SetLevel(Warning)
	Logf(Error, "boom %d", 1)
	Logf(Warning, "careful")
	Logf(Info, "hidden info")
	Logf(Debug, "hidden debug")

	out := buf.String()
	if !strings.Contains(out, "[ERROR] boom 1") {
		t.Errorf("missing error line in %q", out)
	}
	if !strings.Contains(out, "[WARN] careful") {
		t.Errorf("missing warning line in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("suppressed levels leaked into %q", out)
	}
}

func TestSetupLoggingFallsBack(t *testing.T) {
	defer SetLevel(Info)
	if got := SetupLogging("debug"); got != Debug {
		t.Errorf("SetupLogging(debug) = %d, want Debug", got)
	}
	if got := SetupLogging("nonsense"); got != Info {
		t.Errorf("SetupLogging(nonsense) = %d, want Info fallback", got)
	}
}
