package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"ash-assistant-be/pkg/kb"
	"ash-assistant-be/pkg/rag/prompt"
)

// Debug CLI: run a retrieval query against a knowledge directory and print
// the ranked results the assistant would see.
func main() {
	root := flag.String("root", "knowledge", "knowledge directory")
	k := flag.Int("k", kb.DefaultK, "number of results")
	ns := flag.String("ns", "", "restrict to one namespace")
	flag.Parse()

	query := strings.Join(flag.Args(), " ")
	if query == "" {
		log.Fatal("usage: search [-root dir] [-k n] [-ns namespace] <query terms>")
	}

	store := kb.NewStore(*root)
	_, report := store.LoadWithReport()
	if report.RootMissing {
		log.Fatalf("❌ knowledge root %q does not exist", *root)
	}
	fmt.Printf("Loaded %d documents from %d files (%d skipped)\n\n",
		report.Documents, report.Files, len(report.Skipped))

	var namespaces map[string]bool
	if *ns != "" {
		namespaces = map[string]bool{*ns: true}
	}

	results := kb.NewRetriever(store).Retrieve(query, *k, namespaces)
	if len(results) == 0 {
		fmt.Println("❌ No results")
		return
	}

	fmt.Printf("Mode: %s\n\n", prompt.ClassifyMode(query))
	for i, res := range results {
		fmt.Printf("[%d] %.2f  %s • %s (%s)\n", i+1, res.Score,
			res.Document.ID, res.Document.Title, res.Document.Namespace)
		fmt.Printf("    %s\n\n", res.Snippet)
	}
}
