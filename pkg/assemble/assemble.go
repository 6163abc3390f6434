package assemble

import (
	"fmt"
	"sort"
)

type MissingPartsError struct {
	Missing []int
}

func (e *MissingPartsError) Error() string {
	return fmt.Sprintf("missing %d parts: %v", len(e.Missing), e.Missing)
}

// Gaps returns the part numbers of [1, total] absent from parts,
// in ascending order.
func Gaps(parts map[int][]byte, total int) []int {
	missing := make([]int, 0)
	for part := 1; part <= total; part++ {
		if _, ok := parts[part]; !ok {
			missing = append(missing, part)
		}
	}
	sort.Ints(missing)
	return missing
}

// Assemble concatenates all parts in ascending order. Every part in
// [1, total] must be present or it fails with *MissingPartsError.
func Assemble(parts map[int][]byte, total int) ([]byte, error) {
	missing := Gaps(parts, total)
	if len(missing) > 0 {
		return nil, &MissingPartsError{Missing: missing}
	}

	size := 0
	for part := 1; part <= total; part++ {
		size += len(parts[part])
	}

	out := make([]byte, 0, size)
	for part := 1; part <= total; part++ {
		out = append(out, parts[part]...)
	}
	return out, nil
}

// Draft lays out whatever parts are held at their true byte offsets.
// Missing non-final parts become chunkSize zero bytes so offsets stay
// correct; a missing final part is simply not written, since its true
// length is unknowable from total and chunkSize alone.
func Draft(parts map[int][]byte, total int, chunkSize int) []byte {
	size := int64(total-1) * int64(chunkSize)
	if last, ok := parts[total]; ok {
		size += int64(len(last))
	}

	out := make([]byte, size)
	for part, data := range parts {
		copy(out[int64(part-1)*int64(chunkSize):], data)
	}
	return out
}

// FromDraft probes a draft in chunkSize strides and returns the parts it
// appears to hold. An all-zero stride is read as a placeholder; a chunk
// of legitimately all-zero data is therefore re-requested rather than
// trusted, which costs one redundant part but never corrupts the result.
func FromDraft(draft []byte, chunkSize int) map[int][]byte {
	parts := make(map[int][]byte)

	part := 0
	for off := 0; off < len(draft); off += chunkSize {
		part++
		end := off + chunkSize
		if end > len(draft) {
			end = len(draft)
		}
		stride := draft[off:end]
		if allZero(stride) {
			continue
		}
		data := make([]byte, len(stride))
		copy(data, stride)
		parts[part] = data
	}
	return parts
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
