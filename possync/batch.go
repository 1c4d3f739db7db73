package possync

import "fmt"

// BatchKeys splits keys into fixed-size batches, preserving order. The last
// batch may be shorter. External lookups cap their IN-list sizes with this.
func BatchKeys[K any](keys []K, size int) ([][]K, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", size)
	}

	batches := make([][]K, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		batches = append(batches, keys[start:end])
	}
	return batches, nil
}
