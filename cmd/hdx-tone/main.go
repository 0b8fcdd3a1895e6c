/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"hdxmeter/internal/scene"
	"hdxmeter/internal/security"
	"hdxmeter/internal/tone"
)

const (
	version_major      = 1
	version_minor      = 0
	developer_title    = "Developer Hardiyanto"
	developer_subtitle = "Build 27/12/2025 -Ebiet Version"
	usage_text         = "Usage: hdx-tone -destpath (Output Path) [-freqs 440,1000] [-duration 5s] [-amp 0.5] [-format wav|hdxo] [-key pass] [-workers 2]"
	app_name           = "HDX-Tone"
)

type batch struct {
	dest      string
	freqs     []float64
	opts      tone.Options
	ext       string
	key       []byte
	workers   int
	sceneFile string
	out       io.Writer
}

func parseFreqs(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("frequency %q: must be a positive number", f)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no frequency given")
	}
	return out, nil
}

func toneName(freq float64, ext string) string {
	return fmt.Sprintf("tone-%shz.%s", strconv.FormatFloat(freq, 'f', -1, 64), ext)
}

// run renders every tone with a worker pool and writes a scene listing them.
func (b batch) run() (failed int, err error) {
	if err := os.MkdirAll(b.dest, os.ModePerm); err != nil {
		return 0, err
	}

	progress := NewProgress(b.out, len(b.freqs))
	jobs := make(chan float64, len(b.freqs))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for w := 1; w <= max(b.workers, 1); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for freq := range jobs {
				if !b.render(freq) {
					mu.Lock()
					failed++
					mu.Unlock()
				}
				progress.Add(1)
			}
		}()
	}
	for _, f := range b.freqs {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	if b.sceneFile == "" {
		return failed, nil
	}
	s := scene.Scene{}
	for _, f := range b.freqs {
		name := toneName(f, b.ext)
		s.Elements = append(s.Elements, scene.Entry{
			ID:    strings.TrimSuffix(name, "."+b.ext),
			Path:  name,
			Title: fmt.Sprintf("%g Hz", f),
		})
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return failed, err
	}
	return failed, os.WriteFile(filepath.Join(b.dest, b.sceneFile), data, 0644)
}

func (b batch) render(freq float64) bool {
	name := toneName(freq, b.ext)
	opts := b.opts
	opts.Frequency = freq
	if err := tone.WriteFile(filepath.Join(b.dest, name), opts, b.key); err != nil {
		if b.out != nil {
			fmt.Fprintf(b.out, "\n[Error] Gagal render %s: %v\n", name, err)
		}
		return false
	}
	return true
}

func main() {
	destPath := flag.String("destpath", "", "Direktori tujuan file tone")
	freqs := flag.String("freqs", "440,1000", "Daftar frekuensi (Hz), dipisah koma")
	duration := flag.Duration("duration", 5*time.Second, "Durasi tiap tone")
	amp := flag.Float64("amp", 0.5, "Amplitudo puncak 0..1")
	format := flag.String("format", "wav", "Format keluaran: wav atau hdxo")
	key := flag.String("key", "", "Passphrase untuk hdxo terenkripsi")
	sceneFile := flag.String("scene", "scene.yaml", "Nama file scene yang ditulis (kosong = tidak ditulis)")
	workers := flag.Int("workers", 2, "Jumlah proses simultan (default 2)")

	flag.Parse()

	if *destPath == "" {
		fmt.Printf("%s version %d.%d\n", app_name, version_major, version_minor)
		fmt.Printf("%s - %s\n", developer_title, developer_subtitle)
		fmt.Printf("%s\n", usage_text)
		return
	}

	list, err := parseFreqs(*freqs)
	if err != nil {
		fmt.Println("[Error]", err)
		os.Exit(2)
	}
	ext := strings.ToLower(strings.TrimPrefix(*format, "."))
	if ext != "wav" && ext != "hdxo" {
		fmt.Printf("[Error] format %q tidak dikenal\n", *format)
		os.Exit(2)
	}

	b := batch{
		dest:      *destPath,
		freqs:     list,
		opts:      tone.Options{Amplitude: *amp, Duration: *duration},
		ext:       ext,
		key:       security.StreamKey(*key),
		workers:   *workers,
		sceneFile: *sceneFile,
		out:       os.Stdout,
	}
	fmt.Printf("[Batch] %d tone. Memulai render dengan %d workers...\n", len(list), *workers)
	failed, err := b.run()
	if err != nil {
		fmt.Println("[Error]", err)
		os.Exit(1)
	}
	if failed > 0 {
		fmt.Printf("\n[Error] %d tone gagal dirender.\n", failed)
		os.Exit(1)
	}
	fmt.Println("\n[Success] Semua tone selesai.")
}
