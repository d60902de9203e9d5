package main

import (
	"bytes"
	"testing"
)

func TestWantProgress(t *testing.T) {
	cases := []struct {
		args []string
		want bool
		err  bool
	}{
		{[]string{"--ui", "on"}, true, false},
		{[]string{"--ui", "ON"}, true, false},
		{[]string{"--ui", "off"}, false, false},
		{[]string{"--ui", "on", "--quiet"}, false, false},
		// stderr is a buffer here, not a terminal
		{[]string{"--ui", "auto"}, false, false},
		{[]string{"--ui", "sometimes"}, false, true},
	}
	for _, tc := range cases {
		cmd := analyzeCmdWithArgs(t, tc.args...)
		cmd.SetErr(&bytes.Buffer{})
		got, err := wantProgress(cmd)
		if (err != nil) != tc.err || got != tc.want {
			t.Errorf("wantProgress(%v) = %v, %v; want %v (error %v)", tc.args, got, err, tc.want, tc.err)
		}
	}
}
