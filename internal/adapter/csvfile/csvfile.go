// Package csvfile reads and writes the intermediate user files exchanged
// between pipeline stages. Both files are UTF-8, comma separated, with a
// header row and standard quoting.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	domain "user-etl/internal/domain/user"
	apperrors "user-etl/pkg/errors"
)

const (
	// TimestampLayout is the signup_date layout of the raw file.
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout is the signup_date layout of the transformed file.
	DateLayout = "2006-01-02"

	utf8BOM = "\uFEFF"
)

var (
	// RawHeader is the header row of the generated file.
	RawHeader = []string{"user_id", "name", "email", "signup_date"}
	// TransformedHeader is the header row of the transformed file.
	TransformedHeader = []string{"user_id", "name", "email", "signup_date", "domain"}
)

// acceptedLayouts are tried in order when parsing signup_date.
var acceptedLayouts = []string{
	TimestampLayout,
	time.RFC3339,
	DateLayout,
}

// WriteRecords overwrites path with the raw header and one line per record.
func WriteRecords(path string, records []domain.Record) error {
	return writeFile(path, RawHeader, len(records), func(i int) []string {
		r := records[i]
		return []string{
			strconv.FormatInt(r.UserID, 10),
			r.Name,
			r.Email,
			r.SignupDate.Format(TimestampLayout),
		}
	})
}

// WriteTransformed overwrites path with the transformed header and records.
// An absent domain is written as an empty cell.
func WriteTransformed(path string, records []domain.TransformedRecord) error {
	return writeFile(path, TransformedHeader, len(records), func(i int) []string {
		r := records[i]
		d := ""
		if r.HasDomain {
			d = r.Domain
		}
		return []string{
			strconv.FormatInt(r.UserID, 10),
			r.Name,
			r.Email,
			r.SignupDate.Format(DateLayout),
			d,
		}
	})
}

// ReadRecords parses a raw file written by WriteRecords. Extra columns are
// ignored; missing required columns, non-numeric IDs and unparseable dates
// are parse errors.
func ReadRecords(path string) ([]domain.Record, error) {
	var out []domain.Record
	err := readFile(path, RawHeader, func(line int, get func(string) string) error {
		id, err := parseUserID(get("user_id"))
		if err != nil {
			return lineError(line, err)
		}
		ts, err := ParseSignupDate(get("signup_date"))
		if err != nil {
			return lineError(line, err)
		}
		out = append(out, domain.Record{
			UserID:     id,
			Name:       get("name"),
			Email:      get("email"),
			SignupDate: ts,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadTransformed parses a file written by WriteTransformed.
func ReadTransformed(path string) ([]domain.TransformedRecord, error) {
	var out []domain.TransformedRecord
	err := readFile(path, TransformedHeader, func(line int, get func(string) string) error {
		id, err := parseUserID(get("user_id"))
		if err != nil {
			return lineError(line, err)
		}
		ts, err := ParseSignupDate(get("signup_date"))
		if err != nil {
			return lineError(line, err)
		}
		d := get("domain")
		out = append(out, domain.TransformedRecord{
			UserID:     id,
			Name:       get("name"),
			Email:      get("email"),
			SignupDate: domain.DateOnly(ts),
			Domain:     d,
			HasDomain:  d != "",
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseSignupDate parses a signup_date cell in any accepted layout.
func ParseSignupDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid signup_date %q", s)
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user_id %q", s)
	}
	return id, nil
}

func lineError(line int, err error) error {
	return apperrors.NewParseError("", fmt.Sprintf("line %d", line), err)
}

func writeFile(path string, header []string, n int, row func(i int) []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.NewIOError("", "create "+path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = apperrors.NewIOError("", "close "+path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return apperrors.NewIOError("", "write header", err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return apperrors.NewIOError("", "write row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.NewIOError("", "flush "+path, err)
	}
	return nil
}

// readFile streams path row by row. get returns the raw cell for a header
// name. Line numbers are 1-based with the header on line 1.
func readFile(path string, required []string, fn func(line int, get func(string) string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewIOError("", "open "+path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return apperrors.ErrEmptyHeader
	}
	if err != nil {
		return apperrors.NewParseError("", "read header", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("%w: %s", apperrors.ErrMissingColumn, col)
		}
	}

	var rec []string
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	for line := 2; ; line++ {
		rec, err = r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return apperrors.NewParseError("", "read row", err)
		}
		if err := fn(line, get); err != nil {
			return err
		}
	}
}
