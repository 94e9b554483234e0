// Package fasta reads and writes sequence records in FASTA and FASTQ
// format. Parsing is deliberately permissive about layout (blank lines,
// carriage returns, old-style ; comments, multi-line sequences) and strict
// about structure, reporting INVALID_FORMAT errors with line numbers.
//
// Record names are the first whitespace-delimited token of the header
// line; the rest of the header is discarded. Residue alphabets are not
// checked here, that happens when a record is threaded into a graph.
package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	pkgerrors "github.com/poagraph/poagraph/pkg/errors"
)

// Record is one named sequence. Quality is empty for FASTA input and
// holds the raw Phred string for FASTQ input; writing is FASTA-only, so
// quality never round-trips.
type Record struct {
	Name     string
	Sequence string
	Quality  string
}

// lineWidth is the column at which WriteFASTA wraps sequence data.
const lineWidth = 60

const maxLineBytes = 16 * 1024 * 1024

// Parse reads sequence records from r, detecting FASTA or FASTQ from the
// first significant line.
func Parse(r io.Reader) ([]Record, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	for i, ln := range lines {
		t := strings.TrimSpace(ln)
		if t == "" || t[0] == ';' {
			continue
		}
		switch t[0] {
		case '>':
			return parseFASTA(lines)
		case '@':
			return parseFASTQ(lines)
		default:
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat,
				"line %d: unrecognized sequence format, want a > or @ header", i+1)
		}
	}
	return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "no sequence records found")
}

// ParseFile reads sequence records from a FASTA or FASTQ file.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		code := pkgerrors.ErrCodeInvalidPath
		if errors.Is(err, fs.ErrNotExist) {
			code = pkgerrors.ErrCodeFileNotFound
		}
		return nil, pkgerrors.Wrap(code, err, "open %s", path)
	}
	defer f.Close()
	return Parse(f)
}

// WriteFASTA writes records as FASTA to w, wrapping sequence data at 60
// columns. Quality strings are dropped.
func WriteFASTA(records []Record, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		fmt.Fprintf(bw, ">%s\n", rec.Name)
		s := rec.Sequence
		for len(s) > lineWidth {
			bw.WriteString(s[:lineWidth])
			bw.WriteByte('\n')
			s = s[lineWidth:]
		}
		bw.WriteString(s)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteFASTAFile writes records to a FASTA file.
// The file is created with 0644 permissions.
func WriteFASTAFile(records []Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidPath, err, "create %s", path)
	}
	defer f.Close()
	return WriteFASTA(records, f)
}

func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidFormat, err, "read sequences")
	}
	return lines, nil
}

func parseFASTA(lines []string) ([]Record, error) {
	var records []Record
	var name string
	var seq strings.Builder
	headerLine := 0

	flush := func() error {
		if name == "" {
			return nil
		}
		if seq.Len() == 0 {
			return pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: record %q has no sequence", headerLine, name)
		}
		records = append(records, Record{Name: name, Sequence: seq.String()})
		return nil
	}

	for i, ln := range lines {
		t := strings.TrimSpace(ln)
		if t == "" || t[0] == ';' {
			continue
		}
		if t[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			name = firstToken(t[1:])
			if name == "" {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: record has no name", i+1)
			}
			headerLine = i + 1
			seq.Reset()
			continue
		}
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: sequence data before the first header", i+1)
		}
		seq.WriteString(t)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return records, nil
}

func parseFASTQ(lines []string) ([]Record, error) {
	var records []Record
	var rec Record
	phase := 0 // header, sequence, separator, quality

	for i, ln := range lines {
		t := strings.TrimSpace(ln)
		if t == "" {
			continue
		}
		switch phase {
		case 0:
			if t[0] != '@' {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: want an @ header, got %q", i+1, t)
			}
			rec = Record{Name: firstToken(t[1:])}
			if rec.Name == "" {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: record has no name", i+1)
			}
			phase = 1
		case 1:
			rec.Sequence = t
			phase = 2
		case 2:
			if t[0] != '+' {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "line %d: want a + separator, got %q", i+1, t)
			}
			phase = 3
		case 3:
			rec.Quality = t
			if len(rec.Quality) != len(rec.Sequence) {
				return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat,
					"line %d: record %q has %d quality values for %d residues", i+1, rec.Name, len(rec.Quality), len(rec.Sequence))
			}
			records = append(records, rec)
			phase = 0
		}
	}
	if phase != 0 {
		return nil, pkgerrors.New(pkgerrors.ErrCodeInvalidFormat, "truncated record %q at end of input", rec.Name)
	}
	return records, nil
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
