package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/F1Crawler/internal/config"
	"github.com/TobiSchelling/F1Crawler/internal/llm"
	"github.com/TobiSchelling/F1Crawler/internal/pipeline"
	"github.com/TobiSchelling/F1Crawler/internal/rag"
	"github.com/TobiSchelling/F1Crawler/internal/report"
	"github.com/TobiSchelling/F1Crawler/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	// Secrets such as GEMINI_API_KEY may live in a local .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Loading .env: %v", err)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "f1crawler",
	Short:   "Formula 1 news scraping and ingestion",
	Long:    "f1crawler scrapes F1 news sources, keeps recent relevant articles, summarizes them and indexes the summaries for question answering.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statusCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("f1crawler", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/f1crawler/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure sources, keywords and the LLM provider.")
		return nil
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the source registry",
	Run: func(cmd *cobra.Command, args []string) {
		for i, s := range cfg.Sources {
			fmt.Printf("%d. %s [%s]\n", i+1, s.Label, s.Category)
			fmt.Printf("   URL:  %s\n", s.URL)
			if s.FeedURL != "" {
				fmt.Printf("   Feed: %s\n", s.FeedURL)
			}
			switch {
			case s.Blocked:
				fmt.Println("   Date: blocked source, parser date only, no age filter when missing")
			case s.HasDateRule():
				fmt.Printf("   Date: %s @%s (%s)\n", s.DateSelector, s.DateAttribute, s.DateFormat)
			default:
				fmt.Println("   Date: parser date only")
			}
		}
		fmt.Printf("\n%d keywords, %d user agents\n", len(cfg.Keywords), len(cfg.UserAgents))
	},
}

// --- scrape command ---

var (
	since      string
	daysBack   int
	dryRun     bool
	reportPath string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape sources, summarize recent F1 articles and index them",
	RunE: func(cmd *cobra.Command, args []string) error {
		minDate, err := resolveMinDate(since, daysBack, cfg.Ingest.DaysBack, time.Now())
		if err != nil {
			return err
		}

		ctx := context.Background()

		var st *store.Store
		var indexer pipeline.Indexer
		if !dryRun {
			st, err = openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			indexer = st
		}

		pipe := pipeline.New(ctx, cfg, indexer)
		defer pipe.Close()

		started := time.Now()
		result := pipe.Run(ctx, minDate, dryRun)

		width := terminalWidth()
		fmt.Println("Diagnostics:")
		report.PrintEvents(os.Stdout, result.Events, width)
		fmt.Println("\nRecords:")
		report.PrintRecords(os.Stdout, result.Records, width)

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if reportPath != "" {
			run := report.Run{
				StartedAt: started,
				MinDate:   minDate,
				Records:   result.Records,
				Events:    result.Events,
			}
			if err := report.WriteFile(reportPath, run); err != nil {
				return err
			}
			fmt.Printf("\nReport written to %s\n", reportPath)
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&since, "since", "", "Only keep articles published on or after this date (YYYY-MM-DD)")
	scrapeCmd.Flags().IntVar(&daysBack, "days-back", 0, "Only keep articles from the last N days (default from config)")
	scrapeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Scrape and summarize without indexing")
	scrapeCmd.Flags().StringVar(&reportPath, "report", "", "Write a run report (.md or .html)")
	scrapeCmd.MarkFlagsMutuallyExclusive("since", "days-back")
}

// --- query command ---

var topK int

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from the indexed news",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := context.Background()
		summ := cfg.Summarization
		provider := llm.CreateProvider(ctx, llm.Options{
			Provider:        summ.Provider,
			Model:           summ.Model,
			APIKeyEnv:       summ.APIKeyEnv,
			OllamaURL:       summ.OllamaURL,
			OpenAIModel:     summ.OpenAIModel,
			OpenAIAPIKeyEnv: summ.OpenAIAPIKeyEnv,
		})
		if g, ok := provider.(*llm.GeminiProvider); ok {
			defer g.Close()
		}

		answer := rag.New(st, provider, summ.Language).Answer(ctx, strings.Join(args, " "), topK)
		fmt.Println(answer)
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVarP(&topK, "top-k", "k", rag.DefaultK, "Number of documents to retrieve")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.Count(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Store: %s\n", st.Path())
		fmt.Printf("  Documents: %d\n", n)
		fmt.Printf("  Embedding: %s\n", cfg.Embedding.Provider)
		fmt.Printf("Sources: %d\n", len(cfg.Sources))
		return nil
	},
}

func openStore() (*store.Store, error) {
	emb := cfg.Embedding
	embedder := llm.CreateEmbedder(emb.Provider, emb.Model, emb.OllamaURL, emb.Dimensions)
	return store.Open(filepath.Join(cfg.GetDataDir(), store.FileName), embedder)
}
