package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/packed"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/section"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/query"
	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/searcher/executor"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <query>",
		Short: "Print the normalized tree and postfix plan of a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
}

func runParse(out io.Writer, q string) error {
	plan, err := query.NewCompiler(tokenizer.Analyzer{}, nil).Compile(q)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tree:    %s\n", plan.Tree)
	fmt.Fprintf(out, "postfix: %s\n", plan.Postfix)
	return nil
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a query against the local index directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sections, err := loadConfig()
			if err != nil {
				return err
			}
			router, err := shard.NewRouter(cfg.Indexer, cfg.Search, sections)
			if err != nil {
				return fmt.Errorf("opening index: %w", err)
			}
			defer router.Close()

			exec := executor.NewSharded(router.GetAllEngines(), cfg.Search.MaxWildcardExpansion)
			plan, err := exec.Compile(strings.Join(args, " "))
			if err != nil {
				return err
			}
			result, err := exec.Execute(cmd.Context(), plan, limit)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results (0 for all)")
	return cmd
}

func newMatchCmd() *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "match --field <section>=<text> <query>",
		Short: "Check whether a single document matches a query",
		Long: `match packs the given document into a token table and runs the query
over it with the match evaluator. Sections are named by short or full
name, for example --field ti='A title' --field body='Some text'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sections, err := loadConfig()
			if err != nil {
				return err
			}
			doc, err := parseFields(fields, sections)
			if err != nil {
				return err
			}
			matched, failOpen, err := runMatch(doc, strings.Join(args, " "), sections)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "matched: %t\n", matched)
			if failOpen {
				fmt.Fprintln(cmd.OutOrStdout(), "note: an unknown section name forced a match")
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "document section as <section>=<text> (repeatable)")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}

// parseFields turns section=text pairs into a document.
func parseFields(pairs []string, sections *section.Registry) (indexer.Document, error) {
	doc := indexer.Document{ID: "cli"}
	for _, pair := range pairs {
		name, text, ok := strings.Cut(pair, "=")
		if !ok {
			return doc, fmt.Errorf("field %q: expected <section>=<text>", pair)
		}
		id, ok := sections.Resolve(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return doc, fmt.Errorf("field %q: unknown section %q", pair, name)
		}
		doc.Fields = append(doc.Fields, tokenizer.Field{Section: id, Text: text})
	}
	return doc, nil
}

// runMatch compiles q with wildcards expanded over the document's own
// terms and evaluates it against the packed document.
func runMatch(doc indexer.Document, q string, sections *section.Registry) (matched, failOpen bool, err error) {
	vocab := packed.NewVocabulary()
	table, _ := packed.BuildTable(tokenizer.Tokenize(doc.Fields), vocab)
	compiler := query.NewCompiler(tokenizer.Analyzer{}, query.ExpanderFunc(func(pattern string) []string {
		return vocab.Expand(pattern, 0)
	}))
	plan, err := compiler.Compile(q)
	if err != nil {
		return false, false, err
	}
	matcher := query.NewMatcher(vocab, sections)
	matched = matcher.Matches(plan.Postfix, table)
	return matched, matcher.FailOpenCount() > 0, nil
}
