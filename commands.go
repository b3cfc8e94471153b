package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
	"github.com/metcalfc/folio/internal/config"
	"github.com/metcalfc/folio/internal/layout"
	"github.com/metcalfc/folio/internal/reader"
)

// previewLen limits block text in listings.
const previewLen = 60

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func loadBook(ctx context.Context, cmd *cli.Command) (*book.Sequence, error) {
	file, err := bookArg(ctx, cmd)
	if err != nil {
		return nil, err
	}
	env := envFromContext(ctx)
	seq, err := reader.Parse(file, reader.Options{TocHeading: env.cfg.Reader.TocHeading}, env.log)
	if err != nil {
		return nil, fmt.Errorf("unable to parse '%s': %w", file, err)
	}
	return seq, nil
}

func listBlocks(ctx context.Context, cmd *cli.Command) error {
	seq, err := loadBook(ctx, cmd)
	if err != nil {
		return err
	}
	out := output(cmd)
	for i, b := range seq.All() {
		kind := b.Kind().String()
		if t, ok := b.Target(); ok {
			kind = fmt.Sprintf("%s->%d", kind, t)
		}
		fmt.Fprintf(out, "%6d %-14s %s\n", i, kind, preview(b.Text()))
	}
	return nil
}

func printPages(ctx context.Context, cmd *cli.Command) error {
	seq, err := loadBook(ctx, cmd)
	if err != nil {
		return err
	}
	env := envFromContext(ctx)

	ds := env.cfg.Display
	if px := cmd.Float("font-size"); px > 0 {
		ds = ds.WithFontSize(px)
	}
	columns := env.cfg.Reader.Columns
	if n := cmd.Int("columns"); n > 0 {
		columns = n
	}
	p := ds.Params(cmd.Float("width"), cmd.Float("height"), columns)
	if err := p.Validate(); err != nil {
		return err
	}

	m, err := layout.Paginate(seq, p)
	if err != nil {
		return err
	}
	env.log.Debug("Paginated", zap.Stringer("params", p), zap.Int("pages", m.TotalPages()))

	out := output(cmd)
	fmt.Fprintf(out, "%s\n%d blocks, %d pages\n", p, seq.Len(), m.TotalPages())
	for i := range m.TotalPages() {
		b := m.Boundary(i)
		text := []rune(seq.At(b.Block).Text())
		fmt.Fprintf(out, "%6d %6d:%-6d %s\n", i+1, b.Block, b.Offset, preview(string(text[min(b.Offset, len(text)):])))
	}
	return nil
}

func listFormats(_ context.Context, cmd *cli.Command) error {
	out := output(cmd)
	for _, f := range reader.SupportedFormats() {
		fmt.Fprintln(out, f)
	}
	return nil
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > previewLen {
		return string(r[:previewLen-3]) + "..."
	}
	return strings.TrimSpace(text)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := envFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := output(cmd)
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out = f
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
