package video

import "errors"

var (
	// ErrProbe means the metadata of the input could not be read.
	ErrProbe = errors.New("probe failed")
	// ErrInvalidConfiguration covers bad paths, sizes and worker counts.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrSpawn means the decoding process for a chunk could not be started.
	ErrSpawn = errors.New("decoder spawn failed")
	// ErrRead means a chunk's stream closed early, was truncated, or the
	// decoder exited with an error.
	ErrRead = errors.New("decoder read failed")
	// ErrInterrupted is returned when the run was cancelled by the user.
	ErrInterrupted = errors.New("interrupted")
)
