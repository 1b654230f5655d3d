package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"golang.org/x/term"

	"github.com/willbeason/nih-exporter/pkg/ingest"
	"github.com/willbeason/nih-exporter/pkg/profile"
)

const (
	FlagOut      = "out"
	FlagEncoding = "encoding"
)

func init() {
	cmd.Flags().String(FlagOut, "", "output file path (default: stdout)")
	cmd.Flags().String(FlagEncoding, "latin1", "encoding of delimited files")
}

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "profile-columns FILE|DIR",
	Short:   "Collect statistics about the columns of ExPORTER extract files",
	Args:    cobra.ExactArgs(1),
	Version: "0.1.0",
	RunE:    runE,
}

var ErrProfileColumns = errors.New("profiling columns")

func runE(cmd *cobra.Command, args []string) error {
	inPath := args[0]

	encoding, err := cmd.Flags().GetString(FlagEncoding)
	if err != nil {
		return err
	}

	f, err := os.Stat(inPath)
	if err != nil {
		return fmt.Errorf("%w: stat %q: %w", ErrProfileColumns, inPath, err)
	}

	var paths []string
	if f.IsDir() {
		paths, err = listFiles(inPath)
		if err != nil {
			return err
		}
	} else if ingest.Supported(inPath) {
		paths = []string{inPath}
	} else {
		return fmt.Errorf("%w: file %q is neither a directory nor a supported extract", ErrProfileColumns, inPath)
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width = 80
	}
	p := mpb.New(mpb.WithWidth(width))

	bar := p.AddBar(int64(len(paths)),
		mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
		mpb.PrependDecorators(decor.Name(filepath.Base(inPath))),
		mpb.PrependDecorators(decor.CountersNoUnit("%d/%d", decor.WCSyncSpace)),
		mpb.BarRemoveOnComplete())
	start := time.Now()

	fields := make(map[string]profile.Field)
	for _, path := range paths {
		t, _, err := ingest.ReadFile(path, encoding, nil)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrProfileColumns, err)
		}
		profile.Columns(t, fields)
		bar.IncrBy(1, time.Since(start))
	}
	p.Wait()

	outPath, err := cmd.Flags().GetString(FlagOut)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		outFile, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = outFile.Close()
		}()
		out = outFile
	}

	return profile.Write(out, fields)
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %q: %w", ErrProfileColumns, dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !ingest.Supported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no supported files in %q", ErrProfileColumns, dir)
	}
	sort.Strings(paths)
	return paths, nil
}
