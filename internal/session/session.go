// Package session runs one external downloader invocation and exposes its
// decoded output as a shared broadcast stream.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/broadcast"
	"github.com/nickbreaton/video-slug/internal/event"
)

// ErrVideoNotFound is the terminal stream error when the downloader reports
// that the target resource does not exist.
var ErrVideoNotFound = errors.New("video not found")

// notFoundMarker is the substring the downloader prints when the target is
// gone. Detected on the informational stream so the session fails fast
// instead of waiting for process exit.
const notFoundMarker = "Video unavailable"

// SystemError wraps a process-level failure: the executable could not be
// started or exited abnormally.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string { return fmt.Sprintf("download command: %v", e.Err) }
func (e *SystemError) Unwrap() error { return e.Err }

// progressTemplate makes the downloader emit one machine-readable progress
// line per update: a literal "download:" token followed by a JSON object
// with individually nullable fields. event.Parse relies on this shape.
const progressTemplate = `download:{"downloaded_bytes": %(progress.downloaded_bytes)s, ` +
	`"total_bytes": %(progress.total_bytes|null)s, ` +
	`"eta": %(progress.eta|null)s, ` +
	`"speed": %(progress.speed|null)s, ` +
	`"elapsed": %(progress.elapsed|null)s, ` +
	`"id": "%(info.id|)s"}`

// Session owns one downloader invocation for a single URL. The process and
// its output consumption live until the caller's context is cancelled or
// the process exits; the session never cancels itself.
type Session struct {
	url    string
	bin    string
	dir    string
	logger *zap.Logger
	stream *broadcast.Stream
}

// New creates a session for url. bin is the downloader executable, dir the
// directory downloads are written to.
func New(bin, dir, url string, logger *zap.Logger) *Session {
	return &Session{
		url:    url,
		bin:    bin,
		dir:    dir,
		logger: logger.With(zap.String("url", url)),
		stream: broadcast.New(),
	}
}

// Stream returns the session's broadcast stream. Subscribe before calling
// Start to observe the event sequence from the beginning.
func (s *Session) Stream() *broadcast.Stream {
	return s.stream
}

// args is the fixed invocation contract: no simulation, no interactive
// prompts, restricted output filenames, one JSON metadata dump on
// completion, and templated progress lines.
func (s *Session) args() []string {
	return []string{
		s.url,
		"--newline",
		"--progress",
		"--progress-template", progressTemplate,
		"--dump-json",
		"--no-quiet",
		"--no-simulate",
		"--restrict-filenames",
	}
}

// Start launches the downloader and begins decoding its merged
// stdout/stderr line stream into the session stream. It does not block for
// process completion. Cancelling ctx terminates the process; the stream
// then fails with the context error.
func (s *Session) Start(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.bin, s.args()...)
	cmd.Dir = s.dir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		err = fmt.Errorf("starting %s: %w", s.bin, err)
		s.stream.Fail(&SystemError{Err: err})
		return err
	}

	s.logger.Info("download started", zap.Int("pid", cmd.Process.Pid))

	waitDone := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitDone <- err
	}()

	go s.consume(ctx, pr, waitDone)
	return nil
}

// consume decodes lines until the pipe drains, then settles the stream
// based on how the process ended.
func (s *Session) consume(ctx context.Context, r io.Reader, waitDone <-chan error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		ev := event.Parse(scanner.Text())
		s.stream.Publish(ev)

		if msg, ok := ev.(event.Message); ok && strings.Contains(msg.Text, notFoundMarker) {
			s.stream.Fail(ErrVideoNotFound)
		}
	}

	waitErr := <-waitDone

	switch {
	case ctx.Err() != nil:
		s.stream.Fail(ctx.Err())
		s.logger.Info("download terminated", zap.NamedError("cause", ctx.Err()))
	case waitErr != nil:
		// A not-found failure already settled the stream; Fail is
		// first-wins so the abnormal exit it also causes is absorbed here.
		s.stream.Fail(&SystemError{Err: waitErr})
		s.logger.Warn("download command exited abnormally", zap.Error(waitErr))
	default:
		s.stream.Close()
		s.logger.Info("download command finished")
	}
}
