package internal

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// BatchOptions controls how input files are processed and where results go.
type BatchOptions struct {
	Options

	// Source forces a parser; empty detects it from the file extension.
	Source string
	// Format is the ledger output format, csv or xlsx.
	Format string
	// OutDir receives the reconstructed ledger. Empty means the input's directory.
	OutDir string
	// ArchiveDir receives processed inputs. Empty leaves inputs in place.
	ArchiveDir string
	// Stamp names the output file. Zero means the wall clock.
	Stamp time.Time
}

// FileResult is the outcome of processing one input file.
type FileResult struct {
	Input    string
	Output   string
	Archived string
	Result   Result
	Summary  StatusSummary
}

// ProcessFile reconstructs one input file, writes the ledger and archives
// the input. A schema error rejects the file before anything is written.
func ProcessFile(path string, opts BatchOptions) (FileResult, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
		opts.Logger = log
	}
	if opts.Config == nil {
		opts.Config = NewDefaultConfig()
	}

	res := FileResult{Input: path}
	log.Info("processing file", zap.String("path", path))

	events, err := ReadEvents(opts.Source, path, opts.Config)
	if err != nil {
		return res, err
	}

	res.Result = Reconstruct(events, opts.Options)
	res.Summary = AggregateStatus(res.Result.Records, res.Result.MultiSpan, opts.Config)

	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return res, errors.Wrap(err, "creating output directory")
	}
	format := opts.Format
	if format == "" {
		format = "csv"
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}
	out, err := WriteRecordsFile(outDir, format, stamp, res.Result.Records)
	if err != nil {
		return res, err
	}
	res.Output = out
	log.Info("ledger written", zap.String("path", out), zap.Int("records", len(res.Result.Records)))

	if opts.ArchiveDir != "" {
		archived, err := archiveFile(path, opts.ArchiveDir)
		if err != nil {
			// The ledger is already written; report but keep the result
			log.Error("archiving input failed", zap.String("path", path), zap.Error(err))
			return res, err
		}
		res.Archived = archived
		log.Info("input archived", zap.String("path", archived))
	}
	return res, nil
}

// ProcessDir processes every input file in inDir with a known extension, in
// name order. A failing file is logged and skipped; the returned error
// counts the failures.
func ProcessDir(inDir string, opts BatchOptions) ([]FileResult, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
		opts.Logger = log
	}

	for _, dir := range []string{inDir, opts.OutDir, opts.ArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating directory %s", dir)
		}
	}

	files, err := inputFiles(inDir, opts.Source)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn("no input files found", zap.String("dir", inDir))
		return nil, nil
	}

	var results []FileResult
	failed := 0
	for _, path := range files {
		res, err := ProcessFile(path, opts)
		if err != nil {
			failed++
			log.Error("file failed", zap.String("path", path), zap.Error(err))
			continue
		}
		results = append(results, res)
	}
	if failed > 0 {
		return results, errors.Newf("%d of %d files failed", failed, len(files))
	}
	return results, nil
}

// inputFiles lists the files in dir that a parser can read.
func inputFiles(dir, source string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading input directory")
	}
	var files []string
	for _, entry := range entries {
		// Skip ledgers written by earlier runs into the same directory
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || strings.HasPrefix(entry.Name(), OutputFilePrefix) {
			continue
		}
		if source == "" {
			if _, ok := extensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
				continue
			}
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// archiveFile moves path into dir, never overwriting an earlier archive.
func archiveFile(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating archive directory")
	}
	dest := availablePath(filepath.Join(dir, filepath.Base(path)))
	if err := os.Rename(path, dest); err == nil {
		return dest, nil
	}
	// Rename fails across volumes; fall back to copy and remove
	if err := copyFile(path, dest); err != nil {
		return "", errors.Wrapf(err, "moving %s to archive", path)
	}
	if err := os.Remove(path); err != nil {
		return dest, errors.Wrapf(err, "removing archived input %s", path)
	}
	return dest, nil
}

func availablePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 2; ; n++ {
		candidate := base + "_" + strconv.Itoa(n) + ext
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
