package autobump

import (
	"encoding/json"
	"fmt"
	"os"
)

// pushEvent is the part of a GitHub webhook payload we read.
type pushEvent struct {
	Commits *[]struct {
		Message string `json:"message"`
		Body    string `json:"body"`
	} `json:"commits"`
}

// ReadEventMessages returns the commit messages of a GitHub event payload.
// Each message is the commit message followed by its body on a new line when
// one is present. ok is false when path is empty or the payload carries no
// commits array, e.g. for workflow_dispatch events.
func ReadEventMessages(path string) (messages []string, ok bool, err error) {
	if path == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("reading event payload: %w", err)
	}
	var ev pushEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, false, fmt.Errorf("parsing event payload %s: %w", path, err)
	}
	if ev.Commits == nil {
		return nil, false, nil
	}
	messages = make([]string, 0, len(*ev.Commits))
	for _, c := range *ev.Commits {
		msg := c.Message
		if c.Body != "" {
			msg += "\n" + c.Body
		}
		messages = append(messages, msg)
	}
	return messages, true, nil
}
