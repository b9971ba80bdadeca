package transcode

import (
	"regexp"
	"strconv"
	"time"
)

// SampleKind distinguishes the total-duration report from a position report.
type SampleKind int

const (
	SampleDuration SampleKind = iota
	SamplePosition
)

func (k SampleKind) String() string {
	if k == SampleDuration {
		return "duration"
	}
	return "position"
}

// Sample is one advisory progress report parsed from transcoder output.
type Sample struct {
	Kind  SampleKind
	Value time.Duration
}

var timestampPattern = regexp.MustCompile(`(Duration: |time=)(\d{2,}):(\d{2}):(\d{2})\.(\d+)`)

// scanTail bounds how much unmatched text is carried between chunks. It only
// needs to cover a partial token such as "Duration: 00:01:2".
const scanTail = 64

// Scanner extracts Samples from a stream of output chunks. Tokens split across
// chunk boundaries are reassembled, and a token that ends exactly at the end
// of the data seen so far is held until more data or Flush, since its
// fractional digits may continue in the next chunk.
//
// A Scanner is not safe for concurrent use.
type Scanner struct {
	pending []byte
}

// Feed appends chunk and returns every sample that is now complete.
func (s *Scanner) Feed(chunk []byte) []Sample {
	if len(chunk) == 0 {
		return nil
	}
	s.pending = append(s.pending, chunk...)
	var samples []Sample
	consumed := 0
	held := -1
	for _, loc := range timestampPattern.FindAllSubmatchIndex(s.pending, -1) {
		if loc[1] == len(s.pending) {
			held = loc[0]
			break
		}
		if sample, ok := parseSample(s.pending, loc); ok {
			samples = append(samples, sample)
		}
		consumed = loc[1]
	}
	keep := held
	if keep < 0 {
		keep = max(consumed, len(s.pending)-scanTail)
	}
	s.pending = append(s.pending[:0], s.pending[keep:]...)
	return samples
}

// Flush returns samples for any held token and resets the scanner.
func (s *Scanner) Flush() []Sample {
	var samples []Sample
	for _, loc := range timestampPattern.FindAllSubmatchIndex(s.pending, -1) {
		if sample, ok := parseSample(s.pending, loc); ok {
			samples = append(samples, sample)
		}
	}
	s.pending = s.pending[:0]
	return samples
}

// ScanText scans a complete piece of text in one go.
func ScanText(text string) []Sample {
	var s Scanner
	return append(s.Feed([]byte(text)), s.Flush()...)
}

// Percent converts a position into advisory percent complete, clamped to
// [0, 100]. An unknown duration yields 0.
func Percent(position, duration time.Duration) float64 {
	if duration <= 0 || position <= 0 {
		return 0
	}
	pct := float64(position) / float64(duration) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func parseSample(buf []byte, loc []int) (Sample, bool) {
	group := func(i int) string { return string(buf[loc[2*i]:loc[2*i+1]]) }
	hours, err := strconv.ParseInt(group(2), 10, 64)
	if err != nil {
		return Sample{}, false
	}
	minutes, _ := strconv.ParseInt(group(3), 10, 64)
	seconds, _ := strconv.ParseInt(group(4), 10, 64)
	value := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		fraction(group(5))

	kind := SamplePosition
	if group(1) == "Duration: " {
		kind = SampleDuration
	}
	return Sample{Kind: kind, Value: value}, true
}

// fraction interprets digits as the fractional part of a second, keeping
// nanosecond precision.
func fraction(digits string) time.Duration {
	if len(digits) > 9 {
		digits = digits[:9]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	for i := len(digits); i < 9; i++ {
		n *= 10
	}
	return time.Duration(n)
}
