package service

// BatchResult buckets the per-URL outcomes of a multi-item operation.
// Items are independent: one URL's failure never blocks or rolls back
// another. Not-found entries are reported but do not make the batch a
// failure; errored entries do.
type BatchResult struct {
	Succeeded []string
	NotFound  []string
	Errored   []string
}

func (r BatchResult) Total() int {
	return len(r.Succeeded) + len(r.NotFound) + len(r.Errored)
}

// AllNotFound reports whether every URL in the batch failed to resolve.
func (r BatchResult) AllNotFound() bool {
	return r.Total() > 0 && len(r.NotFound) == r.Total()
}

func (r BatchResult) HasErrors() bool {
	return len(r.Errored) > 0
}
