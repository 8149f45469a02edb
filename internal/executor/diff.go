package executor

import (
	"fmt"
	"strconv"
	"strings"
)

// applyDiff applies a unified diff to content and returns the patched text.
// Hunk context and removed lines must match the current content exactly;
// any mismatch fails the whole patch rather than guessing.
func applyDiff(content, diff string) (string, error) {
	lines := splitLines(content)
	patch := strings.Split(diff, "\n")

	var out []string
	cursor := 0 // next unconsumed line of the original

	i := 0
	for i < len(patch) {
		line := patch[i]
		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") || strings.HasPrefix(line, "diff ") || strings.HasPrefix(line, "index ") {
			i++
			continue
		}
		if !strings.HasPrefix(line, "@@") {
			if strings.TrimSpace(line) == "" {
				i++
				continue
			}
			return "", fmt.Errorf("unexpected diff line %d: %q", i+1, line)
		}

		start, err := parseHunkStart(line)
		if err != nil {
			return "", err
		}
		// Hunk start is 1-based; 0 means insertion into an empty file.
		target := start - 1
		if target < 0 {
			target = 0
		}
		if target < cursor {
			return "", fmt.Errorf("overlapping hunk at line %d", start)
		}
		if target > len(lines) {
			return "", fmt.Errorf("hunk start %d beyond end of file (%d lines)", start, len(lines))
		}

		out = append(out, lines[cursor:target]...)
		cursor = target
		i++

		for i < len(patch) {
			h := patch[i]
			if strings.HasPrefix(h, "@@") {
				break
			}
			switch {
			case strings.HasPrefix(h, " "):
				if cursor >= len(lines) || lines[cursor] != h[1:] {
					return "", fmt.Errorf("context mismatch at line %d", cursor+1)
				}
				out = append(out, lines[cursor])
				cursor++
			case strings.HasPrefix(h, "-"):
				if cursor >= len(lines) || lines[cursor] != h[1:] {
					return "", fmt.Errorf("removed line mismatch at line %d", cursor+1)
				}
				cursor++
			case strings.HasPrefix(h, "+"):
				out = append(out, h[1:])
			case h == "":
				// trailing blank inside the patch text
			case strings.HasPrefix(h, "\\"):
				// "\ No newline at end of file"
			default:
				return "", fmt.Errorf("unexpected hunk line: %q", h)
			}
			i++
		}
	}

	out = append(out, lines[cursor:]...)
	return strings.Join(out, "\n"), nil
}

// parseHunkStart extracts the original-file start line from a header like
// "@@ -12,4 +12,6 @@".
func parseHunkStart(header string) (int, error) {
	fields := strings.Fields(header)
	if len(fields) < 3 || !strings.HasPrefix(fields[1], "-") {
		return 0, fmt.Errorf("malformed hunk header: %q", header)
	}
	spec := strings.TrimPrefix(fields[1], "-")
	if idx := strings.Index(spec, ","); idx >= 0 {
		spec = spec[:idx]
	}
	start, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("malformed hunk header: %q", header)
	}
	return start, nil
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	// A trailing newline yields an empty tail element; keeping it makes
	// Join restore the final newline unchanged.
	return strings.Split(content, "\n")
}
