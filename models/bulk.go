package models

// BulkOpError records one failed operation inside an unordered bulk apply.
type BulkOpError struct {
	OpIndex int    `json:"op_index"`
	Message string `json:"message"`
}

// BulkWriteResult reports the outcome of an unordered bulk apply. Callers
// can tell "nothing matched" apart from "write failed" without inspecting
// driver errors: a failed op lands in Errors, an unmatched one just doesn't
// bump Matched.
type BulkWriteResult struct {
	Matched  int64         `json:"matched"`
	Modified int64         `json:"modified"`
	Errors   []BulkOpError `json:"errors,omitempty"`
}

func (r *BulkWriteResult) addError(opIndex int, err error) {
	r.Errors = append(r.Errors, BulkOpError{OpIndex: opIndex, Message: err.Error()})
}

func (r *BulkWriteResult) Merge(other BulkWriteResult) {
	offset := len(r.Errors)
	r.Matched += other.Matched
	r.Modified += other.Modified
	for _, e := range other.Errors {
		r.Errors = append(r.Errors, BulkOpError{OpIndex: offset + e.OpIndex, Message: e.Message})
	}
}
