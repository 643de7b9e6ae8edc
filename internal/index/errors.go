package index

import "fmt"

func errBatchSizeMismatch(got, want int) error {
	return fmt.Errorf("index: inference primitive returned %d vectors for a batch of %d", got, want)
}
