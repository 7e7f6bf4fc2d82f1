// Command trieeval builds one succinct trie variant over a sorted,
// deduplicated key set read from stdin and reports its size and build time.
package main

import (
	"bufio"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trieeval/trieeval/trie"
)

var variant string

func newTrie(name string) (trie.Trie, error) {
	switch name {
	case "level":
		return trie.NewLevelTrie(), nil
	case "flat":
		return trie.NewFlatTrie(), nil
	case "patricia":
		return trie.NewPatriciaTrie(), nil
	case "indirect":
		return trie.NewIndirectTrie(), nil
	case "tst":
		return trie.NewTSTTrie(), nil
	default:
		return nil, fmt.Errorf("unknown variant %q (want level|flat|patricia|indirect|tst)", name)
	}
}

func sortAndUniquifyKeys(lines []string) [][]byte {
	sort.Strings(lines)
	keys := make([][]byte, 0, len(lines))
	for i, s := range lines {
		if i > 0 && s == lines[i-1] {
			continue
		}
		keys = append(keys, []byte(s))
	}
	return keys
}

// formatBreakdown renders a size-by-sub-structure map in stable, sorted
// key order so the log line doesn't jitter between runs.
func formatBreakdown(bytes map[string]uint64) string {
	names := make([]string, 0, len(bytes))
	for name := range bytes {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, bytes[name])
	}
	return strings.Join(parts, " ")
}

func run(cmd *cobra.Command, args []string) error {
	t, err := newTrie(variant)
	if err != nil {
		return err
	}

	var lines []string
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	keys := sortAndUniquifyKeys(lines)

	start := time.Now()
	if err := t.Build(keys); err != nil {
		return err
	}
	elapsed := time.Since(start)

	log.Printf("%s: built %d keys in %s, %d nodes, %d bytes", t.Name(), t.NKeys(), elapsed, t.NNodes(), t.Size())
	log.Printf("size breakdown: %s", formatBreakdown(t.Stats().Bytes))

	for _, key := range keys {
		id := t.Lookup(key)
		if id == trie.NotFound {
			return fmt.Errorf("round-trip validation failed: key %q not found after build", key)
		}
		got := t.ReverseLookup(id)
		if string(got) != string(key) {
			return fmt.Errorf("round-trip validation failed: key %q reverse-lookup gave %q", key, got)
		}
	}
	log.Printf("round-trip validation passed for %d keys", len(keys))
	return nil
}

func main() {
	log.SetFlags(log.Lmicroseconds)

	root := &cobra.Command{
		Use:   "trieeval",
		Short: "Build a succinct trie over newline-delimited keys read from stdin",
		RunE:  run,
	}
	root.Flags().StringVar(&variant, "variant", "level", "trie variant: level|flat|patricia|indirect|tst")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
