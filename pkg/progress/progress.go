// Package progress provides Reader and Rewritable
package progress

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Reader consistently writes the number of bytes read to Progress.
type Reader struct {
	io.Reader       // Reader to read from
	Bytes     int64 // total number of bytes read (so far)
	Total     int64 // total number of bytes expected, or 0 if unknown

	Rewritable
}

func (cr *Reader) Read(bytes []byte) (int, error) {
	count, err := cr.Reader.Read(bytes)
	cr.Bytes += int64(count)
	if cr.Total > 0 {
		cr.Rewritable.Write(fmt.Sprintf("Read %s of %s", humanize.Bytes(uint64(cr.Bytes)), humanize.Bytes(uint64(cr.Total))))
	} else {
		cr.Rewritable.Write(fmt.Sprintf("Read %s", humanize.Bytes(uint64(cr.Bytes))))
	}
	return count, err
}

// DefaultFlushInterval is a reasonable default flush interval
const DefaultFlushInterval = time.Second / 30

// Rewritable writes a single line of output that is repeatedly overwritten.
type Rewritable struct {
	Writer io.Writer

	FlushInterval  time.Duration // minimum time between flushes of the progress
	lastFlush      time.Time     // last time we flushed
	longestContent int           // longest content ever flushed
	content        string        // current content
}

// Write replaces the content of the line, flushing it if FlushInterval has passed.
func (rw *Rewritable) Write(value string) {
	rw.content = value
	rw.Flush(false)
}

// Flush writes out the current content.
func (rw *Rewritable) Flush(force bool) {
	if rw.Writer == nil {
		return
	}
	if !(force || time.Since(rw.lastFlush) > rw.FlushInterval) {
		return
	}

	if len(rw.content) >= rw.longestContent {
		rw.longestContent = len(rw.content)
	}

	// blank out anything left over from a longer line
	blank := strings.Repeat(" ", rw.longestContent-len(rw.content))
	fmt.Fprintf(rw.Writer, "\r%s%s", rw.content, blank)

	rw.lastFlush = time.Now()
}

// Close blanks the line and resets the cursor.
func (rw *Rewritable) Close() {
	if rw.Writer == nil {
		return
	}
	rw.content = ""
	rw.Flush(true)
	_, _ = rw.Writer.Write([]byte("\r"))
	rw.longestContent = 0
}
