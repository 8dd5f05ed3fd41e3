package detector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/parcel/internal/adapters/detector"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		isTTY bool
		vars  map[string]string
		want  detector.OutputMode
	}{
		{name: "terminal", isTTY: true, want: detector.ModeInteractive},
		{name: "pipe", isTTY: false, want: detector.ModeLinear},
		{name: "CI=true", isTTY: true, vars: map[string]string{"CI": "true"}, want: detector.ModeLinear},
		{name: "CI=1", isTTY: true, vars: map[string]string{"CI": "1"}, want: detector.ModeLinear},
		{name: "CI=false", isTTY: true, vars: map[string]string{"CI": "false"}, want: detector.ModeInteractive},
		{name: "dumb terminal", isTTY: true, vars: map[string]string{"TERM": "dumb"}, want: detector.ModeLinear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detector.Detect(tt.isTTY, env(tt.vars)))
		})
	}
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		flag string
		auto detector.OutputMode
		want detector.OutputMode
	}{
		{flag: "", auto: detector.ModeInteractive, want: detector.ModeInteractive},
		{flag: "auto", auto: detector.ModeLinear, want: detector.ModeLinear},
		{flag: "interactive", auto: detector.ModeLinear, want: detector.ModeInteractive},
		{flag: "linear", auto: detector.ModeInteractive, want: detector.ModeLinear},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.want, detector.ResolveMode(tt.auto, tt.flag))
		})
	}
}

func TestOutputMode_String(t *testing.T) {
	assert.Equal(t, "auto", detector.ModeAuto.String())
	assert.Equal(t, "interactive", detector.ModeInteractive.String())
	assert.Equal(t, "linear", detector.ModeLinear.String())
}
