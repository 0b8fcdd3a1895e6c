/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRelay(t *testing.T) {
	in := strings.NewReader("Pong\nEVENT {\"type\":\"STATUS\"}\nERR ARG\n")
	var out bytes.Buffer
	if err := relay(in, &out); err != nil {
		t.Fatal(err)
	}
	want := "RECV: Pong\nPUSH: {\"type\":\"STATUS\"}\nRECV: ERR ARG\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestCompleterKnowsEveryCommand(t *testing.T) {
	pc := completer()
	if got := len(pc.GetChildren()); got != len(commands) {
		t.Fatalf("completer has %d commands, want %d", got, len(commands))
	}
	for _, c := range []string{"PLAY", "STOP-ALL", "LEVEL"} {
		found := false
		for _, child := range pc.GetChildren() {
			if strings.TrimSpace(string(child.GetName())) == c {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %s", c)
		}
	}
}
