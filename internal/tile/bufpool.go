package tile

import "sync"

// bufPoolKey identifies a pool by band buffer dimensions.
type bufPoolKey struct {
	w, h int
}

// bufPools maps (width, height) → *sync.Pool of []float64 band buffers.
// Using sync.Map avoids a mutex on the hot path; in practice only a
// handful of distinct tile sizes exist per run, so the map stays tiny.
var bufPools sync.Map

// getBuffer returns a zeroed band buffer of w*h float64 values from the
// pool, or allocates a new one.
func getBuffer(w, h int) []float64 {
	key := bufPoolKey{w, h}
	if p, ok := bufPools.Load(key); ok {
		if v := p.(*sync.Pool).Get(); v != nil {
			buf := v.([]float64)
			clear(buf)
			return buf
		}
	}
	return make([]float64, w*h)
}

// putBuffer returns a band buffer to the pool for reuse. Nil/mismatched
// buffers are silently ignored.
func putBuffer(w, h int, buf []float64) {
	if buf == nil || len(buf) != w*h {
		return
	}
	key := bufPoolKey{w, h}
	p, _ := bufPools.LoadOrStore(key, &sync.Pool{})
	p.(*sync.Pool).Put(buf)
}
