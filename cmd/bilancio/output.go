package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

const ruleWidth = 70

func rule() string {
	return strings.Repeat("=", ruleWidth)
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}

func banner(w io.Writer, title string) {
	fmt.Fprintln(w, rule())
	fmt.Fprintln(w, center(title, ruleWidth))
	fmt.Fprintln(w, rule())
}

// preview returns the first n lines of text.
func preview(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

func printPreview(w io.Writer, text string) {
	fmt.Fprintln(w)
	banner(w, "PREVIEW - FIRST 30 LINES")
	for _, line := range preview(text, 30) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, rule())
	fmt.Fprintln(w)
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
