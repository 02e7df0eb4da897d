package harvest

import (
	"errors"
	"fmt"

	"github.com/pevans/ffharvest/story"
)

// ErrResumeIDNotFound is returned by Select when the resume id is not in
// the list.
var ErrResumeIDNotFound = errors.New("resume id not found in id list")

// Select returns the ids to harvest. A zero resumeFrom selects every id;
// otherwise the list is sliced from the first occurrence of resumeFrom.
func Select(ids []story.ID, resumeFrom story.ID) ([]story.ID, error) {
	if resumeFrom == 0 {
		return ids, nil
	}
	for i, id := range ids {
		if id == resumeFrom {
			return ids[i:], nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrResumeIDNotFound, resumeFrom)
}
