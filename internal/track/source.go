// Package track adapts the output of the external detection/tracking engine
// into ordered per-clip detection streams.
//
// The engine is an external collaborator: it segments the day's video into
// fixed-duration clips and writes one JSON track file per clip, containing
// the clip's frame dimensions and the per-frame detections with identifiers
// that are stable within the clip. This package only reads that output.
package track

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/traffic.report/internal/count"
	"github.com/banshee-data/traffic.report/internal/fsutil"
)

// ClipPattern matches the engine's per-clip track files within a directory,
// named so lexical order is chronological order.
const ClipPattern = "clip_*.json"

// Clip is one clip's complete detection stream.
type Clip struct {
	Name        string        `json:"name,omitempty"`
	FrameWidth  int           `json:"frame_width"`
	FrameHeight int           `json:"frame_height"`
	Frames      []count.Frame `json:"frames"`
}

// Source yields per-clip detection streams in strict chronological order.
// Clips are addressed by ordinal index so an interrupted run can resume
// without reprocessing completed indices.
type Source interface {
	// Len returns the number of clips in the day.
	Len() int

	// Clip loads the detection stream for the clip at ordinal position i.
	Clip(ctx context.Context, i int) (*Clip, error)
}

// DirSource reads engine track files from a directory.
type DirSource struct {
	fs    fsutil.FileSystem
	paths []string
}

// NewDirSource enumerates the clip track files under dir, in chronological
// (lexical) order. A directory with no clip files is an error: it means the
// segmenter produced nothing.
func NewDirSource(fs fsutil.FileSystem, dir string) (*DirSource, error) {
	paths, err := fs.Glob(filepath.Join(dir, ClipPattern))
	if err != nil {
		return nil, fmt.Errorf("list clip track files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no clip track files matching %q under %s", ClipPattern, dir)
	}
	return &DirSource{fs: fs, paths: paths}, nil
}

// Len returns the number of clip files found.
func (s *DirSource) Len() int { return len(s.paths) }

// Clip decodes the track file at ordinal position i.
func (s *DirSource) Clip(ctx context.Context, i int) (*Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(s.paths) {
		return nil, fmt.Errorf("clip index %d out of range [0,%d)", i, len(s.paths))
	}

	data, err := s.fs.ReadFile(s.paths[i])
	if err != nil {
		return nil, fmt.Errorf("read clip track file %s: %w", s.paths[i], err)
	}

	var clip Clip
	if err := json.Unmarshal(data, &clip); err != nil {
		return nil, fmt.Errorf("decode clip track file %s: %w", s.paths[i], err)
	}
	if clip.Name == "" {
		clip.Name = filepath.Base(s.paths[i])
	}
	if clip.FrameWidth <= 0 || clip.FrameHeight <= 0 {
		return nil, fmt.Errorf("clip track file %s: missing frame dimensions", s.paths[i])
	}
	return &clip, nil
}

// SliceSource serves clips from memory; used by tests and by callers that
// drive the engine in-process.
type SliceSource struct {
	Items []*Clip
}

// Len returns the number of clips.
func (s *SliceSource) Len() int { return len(s.Items) }

// Clip returns the clip at ordinal position i.
func (s *SliceSource) Clip(ctx context.Context, i int) (*Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(s.Items) {
		return nil, fmt.Errorf("clip index %d out of range [0,%d)", i, len(s.Items))
	}
	return s.Items[i], nil
}
