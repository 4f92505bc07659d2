package filelab

import (
	"bufio"
	stderrors "errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

// ReadText reads r line by line and appends the lines with no separator,
// so "a\nb" reads back as "ab". Every byte that does not begin a valid
// UTF-8 sequence becomes one U+FFFD, so "\xff\xfe" reads as two.
func ReadText(r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	var b strings.Builder
	for {
		line, err := br.ReadString('\n')
		b.WriteString(lineBreaks.Replace(line))
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return replaceInvalid(b.String()), nil
}

func replaceInvalid(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	// Ranging over a string yields utf8.RuneError for each invalid byte.
	for _, r := range s {
		b.WriteRune(r)
	}
	return b.String()
}

// readTextFile opens path and reads it with ReadText.
func readTextFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ReadText(f)
}

// writeTextFile writes content verbatim to path, creating or truncating
// it. A failed close is reported along with any write error.
func writeTextFile(path, content string, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = stderrors.Join(err, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err := io.WriteString(w, content); err != nil {
		return err
	}
	return w.Flush()
}
