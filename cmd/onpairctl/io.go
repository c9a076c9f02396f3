package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/onpairdb/onpair/persist"
)

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}
	return lines, nil
}

func writeArchive(path string, a *persist.Archive) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	if _, err := a.WriteTo(f); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

func readArchive(path string) (*persist.Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var a persist.Archive
	if _, err := a.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return &a, nil
}
