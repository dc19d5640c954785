package main

import (
	"fmt"
	"os"
	"time"

	"github.com/adityasasidhar/Document-ocr/internal/render"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var renderOutput string

var renderCmd = &cobra.Command{
	Use:   "render <bilancio.txt>",
	Short: "Render a saved plain-text balance sheet to PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		if err := render.File(renderOutput, string(text), time.Now()); err != nil {
			return err
		}
		color.Green("Generated: %s", renderOutput)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "bilancio_completo.pdf", "balance sheet PDF to write")
}
