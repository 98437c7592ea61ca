// contentctl renders CRE content from the command line without the queue service.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/leeaandrob/crecontent/internal/app"
	"github.com/leeaandrob/crecontent/internal/config"
	"github.com/leeaandrob/crecontent/internal/models"
	"github.com/leeaandrob/crecontent/internal/pipeline"
	"github.com/leeaandrob/crecontent/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	noAI      bool
	verbose   bool
	typeFlag  string
	topicFlag string
	outFile   string
	outDir    string
)

var rootCmd = &cobra.Command{
	Use:   "contentctl",
	Short: "Generate CRE and multifamily social content",
	Long: `Generate LinkedIn posts and articles about commercial real estate.

Content is written by the configured chat model when OPENAI_API_KEY is set,
and rendered from the built-in templates otherwise.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		}
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List topics and their template coverage",
	RunE:  runTopics,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one post or article",
	Long: `Generate one piece of content and print it as Markdown.

Without --topic a topic is picked at random from those available.`,
	RunE: runGenerate,
}

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Generate a week of content",
	Long:  `Generate seven pieces (long-form on days 1, 4 and 7) into a directory.`,
	RunE:  runWeek,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noAI, "no-ai", false, "render from templates only")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	generateCmd.Flags().StringVarP(&typeFlag, "type", "t", "short", "content type (short or long)")
	generateCmd.Flags().StringVar(&topicFlag, "topic", "", "topic slug (see 'contentctl topics')")
	generateCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to file instead of stdout")

	weekCmd.Flags().StringVarP(&outDir, "dir", "d", "generated_content", "output directory")

	rootCmd.AddCommand(topicsCmd, generateCmd, weekCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// newPipeline builds an in-memory pipeline from the environment.
func newPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if noAI {
		cfg.OpenAIAPIKey = ""
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	resolver, err := app.Resolver(cfg)
	if err != nil {
		return nil, nil, err
	}
	market, closeMarket := app.Market(ctx, cfg)

	p := pipeline.New(resolver, storage.NewMemoryStore(), market, app.News(cfg), pipeline.Config{
		APIKey:         cfg.OpenAIAPIKey,
		Platform:       cfg.Platform,
		LongArticleDay: cfg.LongArticleDay,
	})
	return p, closeMarket, nil
}

func runTopics(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	resolver, err := app.Resolver(cfg)
	if err != nil {
		return err
	}
	registry := resolver.Templates().Registry()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tNAME\tSHORT\tLONG")
	for _, t := range models.TopicCatalog {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Slug, t.Name,
			yesNo(registry.Has(models.ContentTypeShort, t.Slug)),
			yesNo(registry.Has(models.ContentTypeLong, t.Slug)))
	}
	return w.Flush()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ct, err := models.ParseContentType(typeFlag)
	if err != nil {
		return err
	}
	var topic models.Topic
	if topicFlag != "" {
		if topic, err = models.ParseTopic(topicFlag); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	p, closeFn, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	piece, err := p.Generate(ctx, ct, topic)
	if err != nil {
		return err
	}
	if piece.FellBack {
		log.Warn().Str("reason", piece.FallbackReason).Msg("AI generation failed, template used")
	}

	if outFile == "" {
		fmt.Fprint(cmd.OutOrStdout(), piece.Markdown())
		return nil
	}
	if err := os.WriteFile(outFile, []byte(piece.Markdown()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Content saved to: %s\n", outFile)
	return nil
}

func runWeek(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, closeFn, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", outDir, err)
	}

	pieces, genErr := p.GenerateWeek(ctx)
	generated := 0
	for i, piece := range pieces {
		if piece == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Day %d: failed\n", i+1)
			continue
		}
		generated++
		path := filepath.Join(outDir, fmt.Sprintf("day_%d_%s.md", i+1, piece.Type))
		if err := os.WriteFile(path, []byte(piece.Markdown()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Day %d: %s (%s)\n", i+1, piece.TopicName, piece.Type)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d pieces in %s\n", generated, outDir)
	return genErr
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
