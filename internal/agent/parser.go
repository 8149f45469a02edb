package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/MEKXH/mason/internal/executor"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?[ \t]*\n(.*?)```")

// ExtractOperations scans text for fenced JSON blocks describing file
// operations and returns every operation it can decode. A block may hold a
// single operation, an array, or an object with an "operations" field.
// Blocks that do not decode to operations are skipped.
func ExtractOperations(text string) []executor.FileOperation {
	var ops []executor.FileOperation

	for _, match := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		block := strings.TrimSpace(match[1])
		if block == "" {
			continue
		}
		ops = append(ops, decodeOperations(block)...)
	}
	return ops
}

func decodeOperations(block string) []executor.FileOperation {
	switch block[0] {
	case '[':
		var list []executor.FileOperation
		if err := json.Unmarshal([]byte(block), &list); err != nil {
			return nil
		}
		return validOperations(list)
	case '{':
		var wrapper struct {
			Operations []executor.FileOperation `json:"operations"`
		}
		if err := json.Unmarshal([]byte(block), &wrapper); err == nil && len(wrapper.Operations) > 0 {
			return validOperations(wrapper.Operations)
		}

		var single executor.FileOperation
		if err := json.Unmarshal([]byte(block), &single); err != nil {
			return nil
		}
		return validOperations([]executor.FileOperation{single})
	default:
		return nil
	}
}

func validOperations(ops []executor.FileOperation) []executor.FileOperation {
	valid := make([]executor.FileOperation, 0, len(ops))
	for _, op := range ops {
		if op.Validate() == nil {
			valid = append(valid, op)
		}
	}
	return valid
}
