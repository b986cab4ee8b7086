package anthropic

import (
	"bufio"
	"io"
	"strings"
)

// readSSE parses Server-Sent Events from r and calls fn once per complete
// event with its event name and joined data lines. A non-nil error from fn
// stops the read and is returned.
func readSSE(r io.Reader, fn func(event, data string) error) error {
	scanner := bufio.NewScanner(r)

	var event string
	var data []string

	flush := func() error {
		if event == "" && len(data) == 0 {
			return nil
		}
		err := fn(event, strings.Join(data, "\n"))
		event = ""
		data = data[:0]
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Blank line terminates the current event.
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue // SSE comment
		}

		if value, ok := strings.CutPrefix(line, "event:"); ok {
			event = strings.TrimSpace(value)
		} else if value, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimSpace(value))
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	// Stream may end without a trailing blank line.
	return flush()
}
