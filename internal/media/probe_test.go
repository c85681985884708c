package media

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDurationParsesFFProbeOutput(t *testing.T) {
	var gotBinary string
	var gotArgs []string
	prober := &FFProbe{
		Binary:  "ffprobe",
		Timeout: time.Second,
		Run: func(_ context.Context, binary string, args ...string) ([]byte, error) {
			gotBinary = binary
			gotArgs = args
			return []byte(`{"format":{"duration":"123.456000"}}`), nil
		},
	}

	seconds, err := prober.Duration(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if seconds != 123.456 {
		t.Fatalf("expected 123.456, got %v", seconds)
	}
	if gotBinary != "ffprobe" {
		t.Fatalf("expected ffprobe binary, got %q", gotBinary)
	}
	if len(gotArgs) == 0 || gotArgs[len(gotArgs)-1] != "/tmp/clip.mp4" {
		t.Fatalf("expected the path as the final argument, got %v", gotArgs)
	}
}

func TestDurationCommandFailure(t *testing.T) {
	prober := &FFProbe{
		Timeout: time.Second,
		Run: func(_ context.Context, _ string, _ ...string) ([]byte, error) {
			return nil, errors.New("exit status 1")
		},
	}

	if _, err := prober.Duration(context.Background(), "/tmp/clip.mp4"); err == nil {
		t.Fatal("expected an error when ffprobe fails")
	}
}

func TestDurationMalformedOutput(t *testing.T) {
	cases := []struct {
		name   string
		output string
	}{
		{"not json", "garbage"},
		{"missing duration", `{"format":{}}`},
		{"non numeric duration", `{"format":{"duration":"nope"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prober := &FFProbe{
				Timeout: time.Second,
				Run: func(_ context.Context, _ string, _ ...string) ([]byte, error) {
					return []byte(tc.output), nil
				},
			}
			if _, err := prober.Duration(context.Background(), "/tmp/clip.mp4"); err == nil {
				t.Fatal("expected a parse error")
			}
		})
	}
}

func TestNewFFProbeDefaults(t *testing.T) {
	prober := NewFFProbe("", 0)
	if prober.Binary != "ffprobe" {
		t.Fatalf("expected default binary, got %q", prober.Binary)
	}
	if prober.Timeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %v", prober.Timeout)
	}
}
