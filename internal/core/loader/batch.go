package loader

// TrimBatch returns the shortest prefix of ids holding only populated
// entries. A full batch is returned unchanged.
func TrimBatch(ids []any) []any {
	for i, id := range ids {
		if id == nil {
			return ids[:i]
		}
	}
	return ids
}

// BatchSizePolicy resolves the number of keys a loader binds per statement.
type BatchSizePolicy struct {
	// Default applies to entities that declare no batch size.
	Default int
	// Max caps every resolved size; 0 means no cap.
	Max int
}

// DefaultBatchSizePolicy returns the client defaults.
func DefaultBatchSizePolicy() BatchSizePolicy {
	return BatchSizePolicy{Default: 16, Max: 256}
}

// Resolve returns the batch size for an entity. The declared size wins over
// the default; the result is clamped to Max and to maxParams when positive,
// and is never below 1.
func (p BatchSizePolicy) Resolve(declared, maxParams int) int {
	size := p.Default
	if declared > 0 {
		size = declared
	}
	if p.Max > 0 && size > p.Max {
		size = p.Max
	}
	if maxParams > 0 && size > maxParams {
		size = maxParams
	}
	if size < 1 {
		size = 1
	}
	return size
}
