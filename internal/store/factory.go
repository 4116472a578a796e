package store

import (
	"fmt"
	"time"
)

// Backend names accepted by New.
const (
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
)

// Options selects and configures a DocumentStore adapter.
type Options struct {
	Backend string
	URL     string
	DataDir string
	Timeout time.Duration
}

// New returns the adapter named by opts.Backend.
func New(opts Options) (DocumentStore, error) {
	switch opts.Backend {
	case BackendElasticsearch, "":
		return NewElasticStore(ElasticConfig{URL: opts.URL, Timeout: opts.Timeout})
	case BackendBleve:
		return NewBleveStore(opts.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s (valid options: elasticsearch, bleve)", opts.Backend)
	}
}
