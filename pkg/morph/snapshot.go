package morph

// WeightSource is anything holding a weight vector that can be captured and
// restored, usually a Store bound to one mesh.
type WeightSource[K comparable] interface {
	Key() K
	Weights() []float32
	SetWeights(w []float32) error
}

type frameEntry[K comparable] struct {
	src     WeightSource[K]
	weights []float32
}

// WeightStack saves the weights of a group of sources and restores them
// later, e.g. to run an operation on the rest shapes of every mesh in a
// scene. Frames nest and pop in LIFO order. A WeightStack is owned by one
// caller and is not safe for concurrent use.
type WeightStack[K comparable] struct {
	frames [][]frameEntry[K]
}

// Push captures the weights of every source. With zero set each source is
// then set to all zero weights; the caller recommits its meshes.
func (ws *WeightStack[K]) Push(sources []WeightSource[K], zero bool) error {
	frame := make([]frameEntry[K], 0, len(sources))
	for _, src := range sources {
		frame = append(frame, frameEntry[K]{src: src, weights: src.Weights()})
	}
	ws.frames = append(ws.frames, frame)

	if !zero {
		return nil
	}
	for _, e := range frame {
		if err := e.src.SetWeights(make([]float32, len(e.weights))); err != nil {
			return err
		}
	}
	return nil
}

// Pop restores the most recent frame and returns the sources it touched.
// Sources whose target count changed since Push are skipped and reported
// in the error. ok is false when the stack is empty.
func (ws *WeightStack[K]) Pop() (restored []WeightSource[K], ok bool, err error) {
	if len(ws.frames) == 0 {
		return nil, false, nil
	}
	frame := ws.frames[len(ws.frames)-1]
	ws.frames = ws.frames[:len(ws.frames)-1]

	for _, e := range frame {
		if serr := e.src.SetWeights(e.weights); serr != nil {
			if err == nil {
				err = serr
			}
			continue
		}
		restored = append(restored, e.src)
	}
	return restored, true, err
}

// Depth returns the number of frames pushed and not yet popped.
func (ws *WeightStack[K]) Depth() int {
	return len(ws.frames)
}

// Current returns the weights key had before the outermost Push, which are
// the weights a user last set by hand. ok is false when the stack is empty
// or key was not captured.
func (ws *WeightStack[K]) Current(key K) (weights []float32, ok bool) {
	if len(ws.frames) == 0 {
		return nil, false
	}
	for _, e := range ws.frames[0] {
		if e.src.Key() == key {
			return append([]float32(nil), e.weights...), true
		}
	}
	return nil, false
}
