/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"hdxmeter/internal/config"
)

const (
	version_major      = 1
	version_minor      = 0
	app_name           = "HDX-Client"
	developer_title    = "Developer Hardiyanto"
	developer_subtitle = "Build 27/12/2025 Ebiet Version"
)

var commands = []string{
	"ABOUT", "PING", "WHOAMI", "STATUS", "LIST", "LEVEL",
	"PLAY", "PAUSE", "RESUME", "SEEK", "GAIN", "STOP", "STOP-ALL", "SNAPSHOT", "RELOAD",
	"QUIT",
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}

// relay copies daemon lines to w until the socket closes.
func relay(conn io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "EVENT ") {
			fmt.Fprintln(w, "PUSH:", strings.TrimPrefix(line, "EVENT "))
			continue
		}
		fmt.Fprintln(w, "RECV:", line)
	}
	return sc.Err()
}

// repl forwards typed commands until QUIT or end of input.
func repl(rl *readline.Instance, conn io.Writer) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "QUIT") {
			fmt.Fprintln(rl.Stdout(), "Bye.")
			return nil
		}
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
}

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("\n%s V.%d.%d\n", app_name, version_major, version_minor)
	fmt.Printf("%s %s\n", developer_title, developer_subtitle)
	conn, err := net.Dial("unix", cfg.Socket)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer conn.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "hdx> ",
		HistoryFile:  filepath.Join(os.TempDir(), ".hdx-client-history"),
		AutoComplete: completer(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Fprintln(rl.Stdout(), "CONNECTED", cfg.Socket)
	fmt.Fprintln(rl.Stdout(), `Type a command, press Enter. "QUIT" exits.`)

	go func() {
		if err := relay(conn, rl.Stdout()); err != nil {
			fmt.Fprintln(rl.Stderr(), "READ ERROR:", err)
		}
		fmt.Fprintln(rl.Stdout(), "SOCKET CLOSED")
		rl.Close()
	}()

	if err := repl(rl, conn); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
