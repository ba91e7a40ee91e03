package notifier

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Message kinds.
const (
	KindPair    = "pair"
	KindSummary = "summary"
	KindAlert   = "alert"
)

// Message is a rendered report ready for delivery.
type Message struct {
	Kind string
	// Key distinguishes messages of the same kind, e.g. "EUR_USD".
	Key  string
	Text string
	At   time.Time
}

// Sink delivers rendered messages somewhere.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, m Message) error
}

// Dispatcher fans a message out to every configured sink.
type Dispatcher struct {
	sinks  []Sink
	logger zerolog.Logger
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, logger: log.With().Str("component", "notifier").Logger()}
}

// Len reports the number of sinks.
func (d *Dispatcher) Len() int { return len(d.sinks) }

// Publish delivers m to all sinks. A failing sink does not stop the others.
func (d *Dispatcher) Publish(ctx context.Context, m Message) error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, m); err != nil {
			d.logger.Error().Err(err).Str("sink", s.Name()).Str("kind", m.Kind).Msg("delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FileSink writes each message to a plain-text file under Dir.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink { return &FileSink{Dir: dir} }

func (f *FileSink) Name() string { return "file" }

// Path returns the file a message is written to.
func (f *FileSink) Path(m Message) string {
	name := "forex_" + m.Kind
	if m.Key != "" {
		name += "_" + m.Key
	}
	return filepath.Join(f.Dir, fmt.Sprintf("%s_%s.txt", name, m.At.Format("20060102_150405")))
}

func (f *FileSink) Deliver(_ context.Context, m Message) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(f.Path(m), []byte(PlainText(m.Text)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

var htmlTags = strings.NewReplacer("<b>", "", "</b>", "", "<i>", "", "</i>", "")

// PlainText strips the Telegram HTML markup used by the formatters and
// unescapes entities.
func PlainText(s string) string { return html.UnescapeString(htmlTags.Replace(s)) }
