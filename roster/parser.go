package roster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column layout of a Ratings Central roster export. The file is comma
// delimited, the first line is a header, and fields may be wrapped in
// double quotes to carry embedded commas.
const (
	colRatingsCentralID = 1
	colName             = 3
	colRating           = 4
	colStDev            = 5
	colGroup            = 7

	// MinColumns is the smallest column count a row may have.
	MinColumns = 8
)

// Candidate is one successfully parsed roster row.
type Candidate struct {
	Line             int
	RatingsCentralID int
	Name             string
	Rating           int
	StDev            int
	Group            string
}

// RowError describes a row that could not be parsed. Row errors are
// collected, not fatal: the remaining rows are still processed.
type RowError struct {
	Line    int
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Result holds the outcome of parsing one roster file, in input order.
type Result struct {
	Candidates []Candidate
	Errors     []RowError
}

// Parse reads a delimited roster file. The header line is skipped, blank
// lines are ignored. Parse holds no state between calls: the same input
// always yields the same result.
func Parse(r io.Reader) (*Result, error) {
	res := &Result{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue // header
		}
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}

		values := splitFields(raw)
		if len(values) < MinColumns {
			res.Errors = append(res.Errors, RowError{
				Line:    line,
				Message: fmt.Sprintf("insufficient columns: expected at least %d, found %d (content: %q)", MinColumns, len(values), raw),
			})
			continue
		}

		rcID, err := strconv.Atoi(values[colRatingsCentralID])
		if err != nil {
			res.Errors = append(res.Errors, RowError{
				Line:    line,
				Message: fmt.Sprintf("invalid ratings central id %q (content: %q)", values[colRatingsCentralID], raw),
			})
			continue
		}

		res.Candidates = append(res.Candidates, Candidate{
			Line:             line,
			RatingsCentralID: rcID,
			Name:             values[colName],
			Rating:           parseNumericOrNA(values[colRating]),
			StDev:            parseNumericOrNA(values[colStDev]),
			Group:            values[colGroup],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	return res, nil
}

// parseNumericOrNA maps the textual placeholder "NA" (any case) and any
// other unparsable value to zero. Rating and deviation tolerate this
// fallback; the external id does not.
func parseNumericOrNA(s string) int {
	if strings.EqualFold(s, "NA") {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// splitFields splits a comma separated line into trimmed fields. A field
// may be wrapped in double quotes, in which case commas inside the quotes
// do not split. An unterminated quote runs to the end of the line.
func splitFields(line string) []string {
	fields := make([]string, 0, MinColumns)
	var b strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(b.String()))
			b.Reset()
		default:
			b.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(b.String()))

	return fields
}
