package services

import (
	"fmt"
	"strings"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/constants"
)

// KeyBatch is the result of parsing admin restock text. Invalid lines and
// in-batch repeats are reported and never reach the store.
type KeyBatch struct {
	Items      []NewKey
	Invalid    []*ValidationError
	Duplicates []string
}

// ParseKeyBatch reads one key per line in any of:
//
//	key | duration
//	key | duration | product
//	key | product | duration
//	key | product | duration | link
//	key | duration | product | link
//
// Fields are trimmed and blank lines skipped. With three or four fields the
// duration is looked for in the position its layout expects first.
func ParseKeyBatch(input string) KeyBatch {
	var batch KeyBatch
	seen := make(map[string]bool)

	for _, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		item, err := parseKeyLine(line)
		if err != nil {
			batch.Invalid = append(batch.Invalid, err)
			continue
		}

		if seen[item.Token] {
			batch.Duplicates = append(batch.Duplicates, item.Token)
			continue
		}
		seen[item.Token] = true
		batch.Items = append(batch.Items, item)
	}
	return batch
}

func parseKeyLine(line string) (NewKey, *ValidationError) {
	fields := strings.Split(line, "|")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	invalid := func(reason string) (NewKey, *ValidationError) {
		return NewKey{}, &ValidationError{Field: "key line", Input: line, Reason: reason}
	}

	if len(fields) < 2 || len(fields) > 4 {
		return invalid(fmt.Sprintf("expected 2 to 4 fields separated by '|', got %d", len(fields)))
	}
	if fields[0] == "" {
		return invalid("key is empty")
	}

	item := NewKey{Token: fields[0]}

	// order lists candidate duration positions; the other middle field is the product
	var order []int
	switch len(fields) {
	case 2:
		order = []int{1}
	case 3:
		order = []int{1, 2}
	case 4:
		order = []int{2, 1}
		item.ProductLink = fields[3]
	}

	var lastErr error
	for _, pos := range order {
		d, err := common.ParseKeyDuration(fields[pos])
		if err != nil {
			lastErr = err
			continue
		}
		item.Duration = d
		if len(fields) > 2 {
			// positions 1 and 2 hold duration and product in some order
			item.ProductName = fields[3-pos]
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return invalid(lastErr.Error())
	}

	if item.ProductName == "" {
		item.ProductName = constants.DefaultProductName
	}
	return item, nil
}
