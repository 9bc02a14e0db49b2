// Command nearest classifies an archive listing and resolves the entry
// closest to a target time, the same way the exporter's resolver does.
// Useful for checking what a day bucket holds before spooling.
//
// Usage:
//
//	go run ./cmd/nearest \
//	  -site KMPX \
//	  -target 2024-03-03T00:33:00Z \
//	  -list listing.txt
//
// -list may name a directory (its file names are classified) or a text file
// holding one object name per line; blank lines and lines starting with '#'
// are skipped.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/radar-volume-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	site := flag.String("site", "", "4-character radar site id")
	target := flag.String("target", "", "target time, RFC 3339")
	list := flag.String("list", "", "directory of archives, or file with one object name per line")
	flag.Parse()

	if *site == "" || *target == "" || *list == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -site, -target, -list")
	}

	targetTime, err := time.Parse(time.RFC3339, *target)
	if err != nil {
		return fmt.Errorf("parse -target: %w", err)
	}

	names, err := readListing(*list)
	if err != nil {
		return err
	}

	catalog, err := domain.NewCatalog(names, *site)
	if err != nil {
		return err
	}

	for _, e := range catalog.Entries() {
		stamp := "-"
		if e.HasTimestamp() {
			stamp = e.Timestamp.Format(time.RFC3339)
		}
		fmt.Printf("%-16s %-20s %s\n", e.Kind, stamp, e.RawName)
	}

	res, err := domain.ResolveNearest(catalog, targetTime)
	if err != nil {
		return err
	}

	fmt.Printf("\nnearest to %s: %s (delta %s)\n",
		targetTime.Format(time.RFC3339), res.Entry.RawName, res.Delta)
	if res.Distant() {
		fmt.Printf("warning: nearest scan is more than %s from the target\n", domain.NearestWarnThreshold)
	}
	return nil
}

func readListing(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat listing: %w", err)
	}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read listing directory: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		return names, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return names, nil
}
