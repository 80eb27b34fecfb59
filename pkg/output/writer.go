package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Writer outputs JSONL records for glob results.
//
// Implementations must be safe for concurrent use. Each Write* method emits
// a complete record as a single line of JSON followed by a newline.
type Writer interface {
	WriteObject(ctx context.Context, obj *ObjectRecord) error
	WriteError(ctx context.Context, err *ErrorRecord) error
	WriteSummary(ctx context.Context, sum *SummaryRecord) error

	// Close stops further writes. The underlying io.Writer stays open.
	Close() error
}

// Envelope holds the fields stamped on every record of a stream.
type Envelope struct {
	// JobID correlates the records of one invocation. Empty generates one.
	JobID string

	// Provider is the provider name, e.g. "s3".
	Provider string

	// Locator tags records with the locator they belong to. A manifest run
	// writes several locators into one stream and sets it per section.
	Locator string
}

// JSONLWriter writes records as newline-delimited JSON.
//
// Writers derived with ForLocator share one line sink, so records from
// different locators never interleave mid-line and Close stops them all.
type JSONLWriter struct {
	sink *lineSink
	env  Envelope

	// now is swapped in tests.
	now func() time.Time
}

type lineSink struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewJSONLWriter creates a writer on w. An empty env.JobID is replaced with
// a random UUID so runs appended to the same file stay distinguishable.
func NewJSONLWriter(w io.Writer, env Envelope) *JSONLWriter {
	if env.JobID == "" {
		env.JobID = uuid.NewString()
	}
	return &JSONLWriter{
		sink: &lineSink{w: w},
		env:  env,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// ForLocator returns a writer on the same stream whose records carry loc
// and the provider that serves it.
func (jw *JSONLWriter) ForLocator(loc, provider string) *JSONLWriter {
	derived := *jw
	derived.env.Locator = loc
	derived.env.Provider = provider
	return &derived
}

// JobID returns the correlation ID stamped on every record.
func (jw *JSONLWriter) JobID() string { return jw.env.JobID }

// Envelope returns the fields stamped on every record.
func (jw *JSONLWriter) Envelope() Envelope { return jw.env }

func (jw *JSONLWriter) WriteObject(ctx context.Context, obj *ObjectRecord) error {
	return jw.writeRecord(ctx, TypeObject, obj)
}

func (jw *JSONLWriter) WriteError(ctx context.Context, err *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, err)
}

func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, sum)
}

// Close marks the stream closed for this writer and every writer derived
// from it.
func (jw *JSONLWriter) Close() error {
	jw.sink.mu.Lock()
	defer jw.sink.mu.Unlock()
	jw.sink.closed = true
	return nil
}

func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	line, err := json.Marshal(Record{
		Type:     recordType,
		TS:       jw.now(),
		JobID:    jw.env.JobID,
		Provider: jw.env.Provider,
		Locator:  jw.env.Locator,
		Data:     payload,
	})
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}
	return jw.sink.writeLine(ctx, append(line, '\n'))
}

func (s *lineSink) writeLine(ctx context.Context, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeAll(s.w, line); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// writeAll retries short writes; a partial line would corrupt the stream.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

var _ Writer = (*JSONLWriter)(nil)
