package routerx

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// KeyFuncs decides which identity scored results are merged on.
type KeyFuncs struct {
	// Get extracts the merge key from a result.
	Get func(r *ScoredResult) (string, error)
	// Set writes a merge key into a freshly created result.
	Set func(r *ScoredResult, key string) error
}

func (k KeyFuncs) complete() bool {
	return k.Get != nil && k.Set != nil
}

// DocKeys merges results at document granularity.
func DocKeys() KeyFuncs {
	return KeyFuncs{
		Get: func(r *ScoredResult) (string, error) {
			if r.Doc == nil {
				return "", errors.Wrap(ErrMalformedResult, "result has no doc reference")
			}
			return r.Doc.DocID, nil
		},
		Set: setDocKey,
	}
}

// ChunkToDocKeys merges chunk results into document results.
func ChunkToDocKeys() KeyFuncs {
	return KeyFuncs{
		Get: func(r *ScoredResult) (string, error) {
			if r.Chunk == nil {
				return "", errors.Wrap(ErrMalformedResult, "result has no chunk reference")
			}
			return r.Chunk.DocID, nil
		},
		Set: setDocKey,
	}
}

// ChunkKeys merges results at chunk granularity. Keys have the form
// "<doc_id>-<offset>"; offsets must not be negative.
func ChunkKeys() KeyFuncs {
	return KeyFuncs{
		Get: func(r *ScoredResult) (string, error) {
			if r.Chunk == nil {
				return "", errors.Wrap(ErrMalformedResult, "result has no chunk reference")
			}
			if r.Chunk.Offset < 0 {
				return "", errors.Wrapf(ErrMalformedResult, "chunk %s has negative offset %d", r.Chunk.DocID, r.Chunk.Offset)
			}
			return r.Chunk.DocID + "-" + strconv.Itoa(r.Chunk.Offset), nil
		},
		Set: func(r *ScoredResult, key string) error {
			i := strings.LastIndexByte(key, '-')
			if i < 0 {
				return errors.Wrapf(ErrMalformedResult, "chunk key %q has no offset", key)
			}
			offset, err := strconv.Atoi(key[i+1:])
			if err != nil {
				return errors.WithSecondaryError(
					errors.Wrapf(ErrMalformedResult, "chunk key %q has a bad offset", key),
					err,
				)
			}
			r.Chunk = &ChunkRef{DocID: key[:i], Offset: offset}
			return nil
		},
	}
}

func setDocKey(r *ScoredResult, key string) error {
	r.Doc = &DocRef{DocID: key}
	return nil
}

// keyFuncsByName maps configuration names to key strategies.
var keyFuncsByName = map[string]func() KeyFuncs{
	"doc":          DocKeys,
	"chunk":        ChunkKeys,
	"chunk_to_doc": ChunkToDocKeys,
}
