package es

import (
	"context"
	"fmt"

	"github.com/labtiva/esprobe/internal/config"
	"github.com/rs/zerolog"
)

// Store is the document-store surface every driver implements. Callers own
// the Store they open and must Close it.
type Store interface {
	Health(ctx context.Context) (*ClusterHealth, error)

	CreateIndex(ctx context.Context, name string) (bool, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	DeleteIndex(ctx context.Context, name string) (bool, error)

	// PutDocument reports true when the document was created and false when
	// an existing one was overwritten.
	PutDocument(ctx context.Context, index, id string, body []byte) (bool, error)
	GetDocument(ctx context.Context, index, id string) (*Document, error)
	Search(ctx context.Context, index string, req SearchRequest) (*SearchResult, error)
	DeleteDocument(ctx context.Context, index, id string) (bool, error)

	Driver() string
	Close() error
}

var (
	_ Store = (*Client)(nil)
	_ Store = (*LowLevelClient)(nil)
	_ Store = (*RestyClient)(nil)
)

type options struct {
	logger zerolog.Logger
	trace  bool
}

type Option func(*options)

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTrace also logs request and response bodies.
func WithTrace(trace bool) Option {
	return func(o *options) { o.trace = trace }
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Open returns the Store for cfg.Driver.
func Open(cfg *config.Config, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case config.DriverESAPI, "":
		return NewClient(cfg, opts...)
	case config.DriverLowLevel:
		return NewLowLevelClient(cfg, opts...)
	case config.DriverResty:
		return NewRestyClient(cfg, opts...)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
