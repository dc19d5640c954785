package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/app"
	"github.com/adityasasidhar/Document-ocr/internal/config"
	"github.com/adityasasidhar/Document-ocr/internal/models"
	"github.com/adityasasidhar/Document-ocr/internal/render"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	outputPDF  string
	outputText string
	noPreview  bool
)

// phaseLabels are the progress bar descriptions, keyed by job status.
var phaseLabels = map[string]string{
	models.StatusAnalyzing:  "Phase 1/4: analyzing documents",
	models.StatusExtracting: "Phase 2/4: extracting data",
	models.StatusValidating: "Phase 3/4: validating data",
	models.StatusFormatting: "Phase 4/4: formatting balance sheet",
}

var generateCmd = &cobra.Command{
	Use:   "generate <file.pdf>...",
	Short: "Read financial PDFs and write the balance sheet PDF and its text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&outputPDF, "output", "o", "bilancio_completo.pdf", "balance sheet PDF to write")
	generateCmd.Flags().StringVar(&outputText, "text", "bilancio_output.txt", "plain-text backup to write")
	generateCmd.Flags().BoolVar(&noPreview, "no-preview", false, "do not print the first lines of the result")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateProcessing(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	generator, closeFn, err := app.NewGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	color.New(color.FgCyan, color.Bold).Fprintln(out, "\nStarting balance sheet generation...")

	bar := newProgressBar(len(phaseLabels), "Loading documents")
	step := 0
	result, err := generator.Generate(ctx, args, func(_ context.Context, status string) {
		if label, ok := phaseLabels[status]; ok {
			bar.Describe(color.BlueString(label))
		}
		if step > 0 {
			bar.Add(1)
		}
		step++
	})
	if err != nil {
		bar.Exit()
		return err
	}
	bar.Finish()
	fmt.Fprintln(out)

	for _, p := range result.Phases {
		fmt.Fprintf(out, "  %-11s %-20s in=%-6d out=%-6d %s\n",
			p.Status, p.Model, p.InputTokens, p.OutputTokens, p.Duration.Round(time.Millisecond))
	}

	if err := os.WriteFile(outputText, []byte(result.Text), 0o644); err != nil {
		return fmt.Errorf("failed to write text backup: %w", err)
	}
	color.Green("\nText saved: %s", outputText)

	if !noPreview {
		printPreview(out, result.Text)
	}

	fmt.Fprintln(out, "Generating PDF...")
	if err := render.File(outputPDF, result.Text, time.Now()); err != nil {
		return err
	}

	fmt.Fprintln(out)
	banner(out, "SUCCESS!")
	color.Green("\nGenerated: %s", outputPDF)
	color.Green("Text backup: %s\n", outputText)
	return nil
}
