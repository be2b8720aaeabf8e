package track

// ring gives modulo-indexed access to a fixed-size sequence.
// The track is a closed loop, so index -1 is the last element and index n
// is the first one again.
type ring[T any] struct {
	items []T
}

func newRing[T any](items []T) ring[T] {
	return ring[T]{items: items}
}

func (r ring[T]) len() int {
	return len(r.items)
}

func (r ring[T]) index(i int) int {
	n := len(r.items)
	return ((i % n) + n) % n
}

func (r ring[T]) at(i int) T {
	return r.items[r.index(i)]
}

// circularMovingAverage smooths values with a kernel of 2*halfWindow+1
// elements, wrapping around both ends of the sequence.
func circularMovingAverage(values []float64, halfWindow int) []float64 {
	n := len(values)
	if n == 0 {
		return []float64{}
	}
	if halfWindow <= 0 {
		ret := make([]float64, n)
		copy(ret, values)
		return ret
	}
	r := newRing(values)
	kernel := float64(2*halfWindow + 1)
	ret := make([]float64, n)
	for i := range n {
		sum := 0.0
		for j := -halfWindow; j <= halfWindow; j++ {
			sum += r.at(i + j)
		}
		ret[i] = sum / kernel
	}
	return ret
}
