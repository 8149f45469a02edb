package agent

import (
	"testing"

	"github.com/MEKXH/mason/internal/executor"
)

func TestExtractOperations_SingleObject(t *testing.T) {
	text := "Here is the change:\n```json\n{\"type\": \"create\", \"path\": \"/tmp/a.txt\", \"content\": \"x\"}\n```\nDone."

	ops := ExtractOperations(text)
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}
	if ops[0].Type != executor.OpCreate || ops[0].Path != "/tmp/a.txt" {
		t.Fatalf("unexpected operation %+v", ops[0])
	}
}

func TestExtractOperations_Array(t *testing.T) {
	text := "```json\n[\n{\"type\": \"create\", \"path\": \"/tmp/a\", \"content\": \"1\"},\n{\"type\": \"delete\", \"path\": \"/tmp/b\"}\n]\n```"

	ops := ExtractOperations(text)
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if ops[1].Type != executor.OpDelete {
		t.Fatalf("unexpected operation %+v", ops[1])
	}
}

func TestExtractOperations_WrapperObject(t *testing.T) {
	text := "```json\n{\"operations\": [{\"type\": \"rename\", \"path\": \"/tmp/a\", \"new_path\": \"/tmp/b\"}]}\n```"

	ops := ExtractOperations(text)
	if len(ops) != 1 || ops[0].Type != executor.OpRename || ops[0].NewPath != "/tmp/b" {
		t.Fatalf("unexpected operations %+v", ops)
	}
}

func TestExtractOperations_MultipleBlocks(t *testing.T) {
	text := "```json\n{\"type\": \"create\", \"path\": \"/tmp/a\", \"content\": \"1\"}\n```\nand then\n```json\n{\"type\": \"create\", \"path\": \"/tmp/b\", \"content\": \"2\"}\n```"

	ops := ExtractOperations(text)
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
}

func TestExtractOperations_SkipsInvalid(t *testing.T) {
	cases := []string{
		"no fenced block at all",
		"```json\nnot json\n```",
		"```json\n{\"type\": \"truncate\", \"path\": \"/tmp/a\"}\n```",
		"```json\n{\"type\": \"create\"}\n```",
		"```go\nfunc main() {}\n```",
	}
	for _, text := range cases {
		if ops := ExtractOperations(text); len(ops) != 0 {
			t.Errorf("expected no operations for %q, got %+v", text, ops)
		}
	}
}

func TestExtractOperations_ModifyWithEscapedDiff(t *testing.T) {
	text := "```json\n{\"type\": \"modify\", \"path\": \"/tmp/a\", \"diff\": \"@@ -1,1 +1,1 @@\\n-a\\n+b\\n\"}\n```"
	ops := ExtractOperations(text)
	if len(ops) != 1 || ops[0].Diff == "" {
		t.Fatalf("expected modify with diff, got %+v", ops)
	}
}
