package transcode

import "log/slog"

// DefaultDiscriminatorField is the union-selector field name assumed when a
// schema does not make the discriminator explicit. It matches the convention
// of the workflow forms this package was built against; override it per
// Transcoder with WithDiscriminatorField.
const DefaultDiscriminatorField = "bike"

// Transcoder owns the configuration shared by all transcoding calls. The
// zero-cost default (New with no options) discards diagnostics and uses the
// observed discriminator convention.
type Transcoder struct {
	log               *slog.Logger
	discriminator     string
	fallbackContainer string
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithLogHandler directs the transcoder's diagnostic logging (unmatched
// keys, degraded pattern mode, double-nesting repairs) at the given handler.
func WithLogHandler(h slog.Handler) Option {
	return func(t *Transcoder) {
		if h != nil {
			t.log = slog.New(h)
		}
	}
}

// WithDiscriminatorField overrides the default union-selector field name.
func WithDiscriminatorField(name string) Option {
	return func(t *Transcoder) {
		if name != "" {
			t.discriminator = name
		}
	}
}

// WithFallbackContainerField supplies a container field name to use when a
// call provides no schema. Without it, schema-less calls fail with
// ErrSchemaMissing.
func WithFallbackContainerField(name string) Option {
	return func(t *Transcoder) { t.fallbackContainer = name }
}

// New constructs a Transcoder.
func New(opts ...Option) *Transcoder {
	t := &Transcoder{
		log:           slog.New(slog.DiscardHandler),
		discriminator: DefaultDiscriminatorField,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}
