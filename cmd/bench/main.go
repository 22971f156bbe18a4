// bench - JKSN size benchmark runner
//
// Compares, for every JSON document in a corpus directory:
//   - JSON minified
//   - CBOR (core deterministic encoding)
//   - JKSN with all optimizations
//   - JKSN plain (no swap, no delta, no back-references)
//
// Output: CSV and markdown summary
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/Neumenon/jksn/jksn"
)

type CaseResult struct {
	Name       string
	JSONBytes  int
	CBORBytes  int
	JKSNBytes  int
	PlainBytes int
	BytesSaved int
	BytesPct   float64
}

func main() {
	var corpusDir, csvPath, mdPath string
	flagSet := pflag.NewFlagSet("bench", pflag.ExitOnError)
	flagSet.StringVar(&corpusDir, "corpus", "", "directory of *.json documents (default: jksn/testdata/corpus)")
	flagSet.StringVar(&csvPath, "csv", "bench_results.csv", "CSV output path (empty to skip)")
	flagSet.StringVar(&mdPath, "md", "BENCH.md", "markdown output path (empty to skip)")
	flagSet.Parse(os.Args[1:])

	if corpusDir == "" {
		corpusDir = findCorpus()
	}
	if corpusDir == "" {
		fmt.Fprintln(os.Stderr, "Cannot find jksn/testdata/corpus directory")
		os.Exit(1)
	}

	files, err := filepath.Glob(filepath.Join(corpusDir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No JSON files in %s\n", corpusDir)
		os.Exit(1)
	}
	sort.Strings(files)

	fmt.Fprintf(os.Stderr, "JKSN Benchmark Runner\n")
	fmt.Fprintf(os.Stderr, "=====================\n")
	fmt.Fprintf(os.Stderr, "Corpus: %s (%d cases)\n\n", corpusDir, len(files))

	var results []CaseResult
	for _, path := range files {
		r, err := measure(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skip %s: %v\n", filepath.Base(path), err)
			continue
		}
		results = append(results, r)
	}

	if csvPath != "" {
		if f, err := os.Create(csvPath); err == nil {
			writeCSV(f, results)
			f.Close()
			fmt.Fprintf(os.Stderr, "CSV written to: %s\n", csvPath)
		}
	}
	if mdPath != "" {
		if f, err := os.Create(mdPath); err == nil {
			writeMarkdown(f, results, corpusDir)
			f.Close()
			fmt.Fprintf(os.Stderr, "Markdown written to: %s\n", mdPath)
		}
	}

	t := totals(results)
	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Cases:        %d\n", len(results))
	fmt.Printf("JSON total:   %d bytes\n", t.JSONBytes)
	fmt.Printf("CBOR total:   %d bytes\n", t.CBORBytes)
	fmt.Printf("JKSN total:   %d bytes (plain %d)\n", t.JKSNBytes, t.PlainBytes)
	fmt.Printf("Bytes saved:  %d (%.1f%%) vs JSON\n", t.BytesSaved, t.BytesPct)
}

// measure encodes one corpus document in every format. The JKSN output is
// decoded again and compared with the input before it is counted.
func measure(path string) (CaseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CaseResult{}, err
	}
	v, err := jksn.FromJSON(data)
	if err != nil {
		return CaseResult{}, err
	}

	jsonMin, err := jksn.ToJSON(v)
	if err != nil {
		return CaseResult{}, err
	}
	cborData, err := jksn.ToCBOR(v)
	if err != nil {
		return CaseResult{}, err
	}
	packed, err := jksn.Encode(v)
	if err != nil {
		return CaseResult{}, err
	}
	plain, err := jksn.Encode(v, jksn.WithSwap(false), jksn.WithDelta(false), jksn.WithCache(false))
	if err != nil {
		return CaseResult{}, err
	}

	back, err := jksn.Decode(packed)
	if err != nil {
		return CaseResult{}, fmt.Errorf("decode: %w", err)
	}
	if !back.Equal(v) {
		return CaseResult{}, fmt.Errorf("round trip changed the document")
	}

	return newResult(filepath.Base(path), len(jsonMin), len(cborData), len(packed), len(plain)), nil
}

func newResult(name string, jsonBytes, cborBytes, jksnBytes, plainBytes int) CaseResult {
	r := CaseResult{
		Name:       name,
		JSONBytes:  jsonBytes,
		CBORBytes:  cborBytes,
		JKSNBytes:  jksnBytes,
		PlainBytes: plainBytes,
		BytesSaved: jsonBytes - jksnBytes,
	}
	if jsonBytes > 0 {
		r.BytesPct = float64(r.BytesSaved) / float64(jsonBytes) * 100.0
	}
	return r
}

func totals(results []CaseResult) CaseResult {
	var j, c, k, p int
	for _, r := range results {
		j += r.JSONBytes
		c += r.CBORBytes
		k += r.JKSNBytes
		p += r.PlainBytes
	}
	return newResult("total", j, c, k, p)
}

func findCorpus() string {
	paths := []string{
		"jksn/testdata/corpus",
		"../jksn/testdata/corpus",
		"../../jksn/testdata/corpus",
		"testdata/corpus",
	}
	for _, p := range paths {
		if st, err := os.Stat(p); err == nil && st.IsDir() {
			return p
		}
	}
	return ""
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,json_bytes,cbor_bytes,jksn_bytes,jksn_plain_bytes,bytes_saved,bytes_pct")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d,%d,%d,%d,%d,%.1f\n",
			r.Name, r.JSONBytes, r.CBORBytes, r.JKSNBytes, r.PlainBytes, r.BytesSaved, r.BytesPct)
	}
}

func writeMarkdown(w io.Writer, results []CaseResult, corpus string) {
	t := totals(results)

	fmt.Fprintf(w, "# JKSN Benchmark Results\n\n")
	fmt.Fprintf(w, "**Date:** %s  \n", time.Now().Format(time.DateOnly))
	fmt.Fprintf(w, "**Corpus:** %s (%d cases)  \n\n", corpus, len(results))

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Format | Bytes | vs JSON |\n")
	fmt.Fprintf(w, "|--------|-------|---------|\n")
	fmt.Fprintf(w, "| JSON (minified) | %d | - |\n", t.JSONBytes)
	fmt.Fprintf(w, "| CBOR | %d | %s |\n", t.CBORBytes, ratio(t.CBORBytes, t.JSONBytes))
	fmt.Fprintf(w, "| JKSN plain | %d | %s |\n", t.PlainBytes, ratio(t.PlainBytes, t.JSONBytes))
	fmt.Fprintf(w, "| **JKSN** | %d | %s |\n\n", t.JKSNBytes, ratio(t.JKSNBytes, t.JSONBytes))

	sorted := make([]CaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].BytesPct > sorted[j].BytesPct
	})

	fmt.Fprintf(w, "## Top 5 Space Savings\n\n")
	fmt.Fprintf(w, "| Case | JSON | JKSN | Saved |\n")
	fmt.Fprintf(w, "|------|------|------|-------|\n")
	for i := 0; i < min(5, len(sorted)); i++ {
		r := sorted[i]
		fmt.Fprintf(w, "| %s | %d | %d | %.1f%% |\n", truncateName(r.Name, 25), r.JSONBytes, r.JKSNBytes, r.BytesPct)
	}

	fmt.Fprintf(w, "\n## Cases Where CBOR is Smaller\n\n")
	var worse []CaseResult
	for _, r := range results {
		if r.CBORBytes < r.JKSNBytes {
			worse = append(worse, r)
		}
	}
	if len(worse) == 0 {
		fmt.Fprintf(w, "_None - JKSN is smaller or equal in all cases._\n\n")
	} else {
		fmt.Fprintf(w, "| Case | CBOR | JKSN | Overhead |\n")
		fmt.Fprintf(w, "|------|------|------|----------|\n")
		for _, r := range worse {
			fmt.Fprintf(w, "| %s | %d | %d | +%d bytes |\n", truncateName(r.Name, 25), r.CBORBytes, r.JKSNBytes, r.JKSNBytes-r.CBORBytes)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "## Methodology\n\n")
	fmt.Fprintf(w, "- **JSON:** Minified, field order kept, via `jksn.ToJSON`\n")
	fmt.Fprintf(w, "- **CBOR:** Core deterministic encoding via `jksn.ToCBOR`\n")
	fmt.Fprintf(w, "- **JKSN:** `jksn.Encode` with header, swap, delta and back-references\n")
	fmt.Fprintf(w, "- **JKSN plain:** header only, every optimization disabled\n\n")

	fmt.Fprintf(w, "## Detailed Results\n\n")
	fmt.Fprintf(w, "| Case | JSON | CBOR | JKSN plain | JKSN | Saved %% |\n")
	fmt.Fprintf(w, "|------|------|------|------------|------|---------|\n")
	for _, r := range results {
		fmt.Fprintf(w, "| %s | %d | %d | %d | %d | %.1f%% |\n",
			truncateName(r.Name, 25), r.JSONBytes, r.CBORBytes, r.PlainBytes, r.JKSNBytes, r.BytesPct)
	}
}

func ratio(n, base int) string {
	if base == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(base)*100)
}

func truncateName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
