// SPDX-License-Identifier: Apache-2.0

package tag

import "fmt"

// ResolutionError reports that tag tokens were supplied but never produced a
// complete tag.
type ResolutionError struct {
	Tokens []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("tag arguments were provided, but no complete tag could "+
		"be determined, more information must be specified in args: %v", e.Tokens)
}

// Resolve applies each token to a running tag seeded from base and snapshots
// the result whenever the running tag is complete. The walk keeps mutating
// after a snapshot, so one token list can emit several resolved tags.
//
// Given a complete base, every token preserves completeness and the result
// has one tag per token. No tokens yields no tags (and no error); tokens that
// never complete a tag yield a *ResolutionError.
func Resolve(tokens []string, base Tag, requireTag bool) ([]Tag, error) {
	var tags []Tag

	current := Tag{}.Merge(base)
	for _, token := range tokens {
		next, err := Apply(current, token)
		if err != nil {
			return nil, err
		}
		current = next

		if current.IsComplete(requireTag) {
			tags = append(tags, current)
		}
	}

	if len(tokens) > 0 && len(tags) == 0 {
		return nil, &ResolutionError{Tokens: tokens}
	}

	return tags, nil
}
