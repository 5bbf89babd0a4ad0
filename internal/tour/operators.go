package tour

import "math/rand"

// OrderedCrossover is OX1: the child keeps p1[start..end] in place and fills
// the remaining positions, starting after end and wrapping, with the cities
// of p2 in the order p2 visits them. Cut points are distinct, and the free
// positions run from end+1 around to start-1.
func OrderedCrossover(rng *rand.Rand, p1, p2 []int) []int {
	n := len(p1)
	if n < 2 {
		return append([]int(nil), p1...)
	}
	start, end := rng.Intn(n), rng.Intn(n-1)
	if end >= start {
		end++
	}
	if start > end {
		start, end = end, start
	}

	child := make([]int, n)
	used := make([]bool, n)
	for i := range child {
		child[i] = -1
	}
	for i := start; i <= end; i++ {
		child[i] = p1[i]
		used[p1[i]] = true
	}

	pos := (end + 1) % n
	for _, city := range p2 {
		if used[city] {
			continue
		}
		child[pos] = city
		used[city] = true
		pos = (pos + 1) % n
	}
	return child
}

// SwapMutation exchanges two distinct positions of a copy of tour.
func SwapMutation(rng *rand.Rand, tour []int) []int {
	out := append([]int(nil), tour...)
	if len(out) < 2 {
		return out
	}
	i := rng.Intn(len(out))
	j := rng.Intn(len(out) - 1)
	if j >= i {
		j++
	}
	out[i], out[j] = out[j], out[i]
	return out
}
