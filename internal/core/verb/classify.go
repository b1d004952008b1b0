// SPDX-License-Identifier: Apache-2.0

package verb

import (
	"fmt"
	"sort"

	"github.com/dbuild-io/dbuild/internal/output"
)

// UnhandledArgumentError reports tokens no active verb's grammar matched.
type UnhandledArgumentError struct {
	Tokens []string
}

func (e *UnhandledArgumentError) Error() string {
	return fmt.Sprintf("unhandled arguments: %v", e.Tokens)
}

// Classify partitions the residual CLI tokens (verbs and module names
// already stripped) into typed values per active verb. A token may be
// claimed by several verbs with overlapping grammars; a token claimed by
// none is fatal.
//
// Ordering matters downstream: within one verb, values of the same argument
// type keep their command-line order, since tag tokens form a sequential
// mutation program.
func Classify(tokens []string, active []*Definition) (map[string][]Value, error) {
	consumed := make(map[string]bool)
	classified := make(map[string][]Value)

	for _, def := range active {
		var values []Value

		for _, arg := range def.Args {
			for _, token := range tokens {
				for _, re := range arg.Patterns {
					m := re.FindStringSubmatch(token)
					if m == nil {
						continue
					}

					values = append(values, Value{Type: arg.Type, Raw: token, Groups: m[1:]})
					consumed[token] = true
					break
				}
			}
		}

		classified[def.Name] = values
	}

	var remaining []string
	for _, token := range tokens {
		if !consumed[token] {
			remaining = append(remaining, token)
		}
	}

	if len(remaining) > 0 {
		sort.Strings(remaining)
		output.Error("not all arguments were handled by a verb, make sure the following are correct:")
		for _, token := range remaining {
			output.Error(" - " + token)
		}
		return nil, &UnhandledArgumentError{Tokens: remaining}
	}

	return classified, nil
}

// ValuesOf filters the classified values of one argument type, preserving
// order.
func ValuesOf(values []Value, argType string) []Value {
	var out []Value
	for _, v := range values {
		if v.Type == argType {
			out = append(out, v)
		}
	}
	return out
}
