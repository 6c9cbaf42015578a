// Package pipeline provides the loading stages of a video segmentation data pipeline: a frame
// window sampler that reads RGB and depth frames of a clip, and an annotation loader that reads
// the clip's mask.
package pipeline

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/samber/lo/mutable"
)

// A Window describes which frames of a clip are read: Count frames starting at Start, Step apart.
type Window struct {
	Start int
	Count int
	Step  int
}

// Span is the number of frames from Start that must exist for the window to be read.
func (w Window) Span() int {
	return w.Count * w.Step
}

// A Sampler picks frame windows. In training mode the start and step are random; in eval mode
// the window is always the first frame.
type Sampler struct {
	rng       *rand.Rand
	isTrain   bool
	loadNum   int
	stepLimit int
}

// NewSampler returns a sampler drawing from rng.
func NewSampler(rng *rand.Rand, isTrain bool, loadNum, stepLimit int) *Sampler {
	return &Sampler{rng: rng, isTrain: isTrain, loadNum: loadNum, stepLimit: stepLimit}
}

// Window returns the window to read from a clip of n frames.
func (s *Sampler) Window(n int) Window {
	if !s.isTrain || n <= 0 {
		return Window{Start: 0, Count: 1, Step: 1}
	}
	return Window{
		Start: s.rng.Intn(n),
		Count: s.loadNum,
		Step:  1 + s.rng.Intn(s.stepLimit),
	}
}

// MirrorExtend returns frames followed by mirrored copies of itself until at least need entries
// remain from start on. Each round appends the reverse of everything so far, so the original list
// is always a prefix. The input is not modified.
func MirrorExtend(frames []string, start, need int) []string {
	out := append([]string(nil), frames...)
	if len(out) == 0 {
		return out
	}
	for len(out)-start < need {
		mirrored := append([]string(nil), out...)
		mutable.Reverse(mirrored)
		out = append(out, mirrored...)
	}
	return out
}

// SelectWindow returns the frames covered by w, mirror extending frames when the clip is too
// short.
func SelectWindow(frames []string, w Window) ([]string, error) {
	if len(frames) == 0 {
		return nil, errors.New("clip has no frames")
	}
	if w.Count < 1 || w.Step < 1 {
		return nil, errors.Errorf("invalid frame window %+v", w)
	}
	if w.Start < 0 || w.Start >= len(frames) {
		return nil, errors.Errorf("window start %d out of range for %d frames", w.Start, len(frames))
	}
	extended := MirrorExtend(frames, w.Start, w.Span())
	selected := make([]string, 0, w.Count)
	for i := w.Start; i < w.Start+w.Span(); i += w.Step {
		selected = append(selected, extended[i])
	}
	return selected, nil
}
