package world

// rngNext advances the world's splitmix64 state. An explicit state word
// instead of math/rand so snapshots capture it and a restored world draws the
// same sequence.
func (w *World) rngNext() uint64 {
	w.rngState += 0x9e3779b97f4a7c15
	z := w.rngState
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (w *World) rngIntn(n int) int {
	return int(w.rngNext() % uint64(n))
}
