package util

// Chunk splits xs into consecutive slices of at most size elements.
// The returned slices alias xs.
func Chunk[T any](xs []T, size int) [][]T {
	if size <= 0 || len(xs) == 0 {
		if len(xs) == 0 {
			return nil
		}
		return [][]T{xs}
	}
	out := make([][]T, 0, (len(xs)+size-1)/size)
	for start := 0; start < len(xs); start += size {
		end := start + size
		if end > len(xs) {
			end = len(xs)
		}
		out = append(out, xs[start:end])
	}
	return out
}
