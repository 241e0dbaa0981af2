package brackets

// BracketSize returns the smallest power of two >= n, never below 2.
func BracketSize(n int) int {
	size := 2
	for size < n {
		size <<= 1
	}
	return size
}

// SeedingOrder produces the standard tournament slot order for a bracket of
// the given size (a power of two). It starts from [1] and doubles: every
// seed s is replaced by the pair (s, n+1-s) where n is the doubled length.
// For size 8 the result is 1,8,4,5,2,7,3,6, which keeps seeds 1 and 2 apart
// until the final and pairs high seeds with the lowest surviving seeds.
func SeedingOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		doubled := len(order) * 2
		next := make([]int, 0, doubled)
		for _, s := range order {
			next = append(next, s, doubled+1-s)
		}
		order = next
	}
	return order
}
