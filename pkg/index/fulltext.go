package index

import "errors"

// ErrUnsupported is returned by a full-text index's Query method. The
// index can be registered and reports that it exists, but Nexus does not
// ship a tokenizer/scorer for it.
var ErrUnsupported = errors.New("full-text query not supported")

// fullTextIndex is a registered placeholder: Add is a no-op that succeeds,
// Query always fails with ErrUnsupported.
type fullTextIndex struct{}

func (fullTextIndex) Add(string) error { return nil }

func (fullTextIndex) Query(string, int) ([]uint64, error) { return nil, ErrUnsupported }
