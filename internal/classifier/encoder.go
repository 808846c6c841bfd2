package classifier

import (
	"fmt"
	"slices"
)

// LabelEncoder maps identity strings to dense class indices and back.
// Classes are the sorted distinct labels, so the mapping depends only on the
// label set and not on the order examples were stored in.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// FitLabels builds an encoder over the distinct values of labels.
func FitLabels(labels []string) *LabelEncoder {
	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

// Classes returns the encoded labels in index order.
func (e *LabelEncoder) Classes() []string {
	return slices.Clone(e.classes)
}

// Len returns the number of classes.
func (e *LabelEncoder) Len() int { return len(e.classes) }

// Transform encodes labels. Unknown labels are an error.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, ok := e.index[l]
		if !ok {
			return nil, fmt.Errorf("label %q was not seen during fit", l)
		}
		out[i] = idx
	}
	return out, nil
}

// Inverse decodes a class index.
func (e *LabelEncoder) Inverse(idx int) (string, error) {
	if idx < 0 || idx >= len(e.classes) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", idx, len(e.classes))
	}
	return e.classes[idx], nil
}
