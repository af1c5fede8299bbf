package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

func renderMarkdown(html string) (string, error) {
	md, err := mdConverter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// useColor resolves the -color flag against the output.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// renderDiff writes a line diff of the mirror HTML. Unchanged lines are
// prefixed with two spaces, removed ones with "- " and added ones with "+ ".
func renderDiff(w io.Writer, before, after string, colored bool) error {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(splitTags(before), splitTags(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	add.EnableColor()
	del.EnableColor()
	if !colored {
		add.DisableColor()
		del.DisableColor()
	}

	if len(diffs) == 1 && diffs[0].Type == diffpatch.DiffEqual {
		_, err := fmt.Fprintln(w, "no change")
		return err
	}
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			var err error
			switch d.Type {
			case diffpatch.DiffInsert:
				_, err = add.Fprintln(w, "+ "+line)
			case diffpatch.DiffDelete:
				_, err = del.Fprintln(w, "- "+line)
			default:
				_, err = fmt.Fprintln(w, "  "+line)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// splitTags puts every tag on its own line so rendered HTML diffs by element.
func splitTags(html string) string {
	var b strings.Builder
	for i, r := range html {
		if r == '<' && i > 0 {
			b.WriteByte('\n')
		}
		b.WriteRune(r)
		if r == '>' {
			b.WriteByte('\n')
		}
	}
	out := strings.ReplaceAll(b.String(), "\n\n", "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}
