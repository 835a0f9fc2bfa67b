package eventstream

import (
	"encoding/json"
	"strings"

	"github.com/mystudio/chat-relay/domain"
)

// Decoder reassembles frames from chunks of bytes arriving at arbitrary
// boundaries. A trailing partial record is carried over to the next Feed
// call rather than parsed prematurely. After a terminal frame the decoder
// stops consuming; further input is discarded.
type Decoder struct {
	carry      string
	text       strings.Builder
	terminated bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one chunk and returns the events completed by it, in order.
// Records that are not event frames, or whose payload does not parse, are
// skipped: a corrupt single frame must not fail the whole exchange.
func (d *Decoder) Feed(chunk []byte) []domain.StreamEvent {
	if d.terminated {
		return nil
	}

	d.carry += string(chunk)
	lines := strings.Split(d.carry, "\n")
	d.carry = lines[len(lines)-1]

	var events []domain.StreamEvent
	for _, line := range lines[:len(lines)-1] {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == "" {
			continue
		}

		var f Frame
		if err := json.Unmarshal([]byte(payload), &f); err != nil {
			continue
		}

		switch {
		case f.Error != "":
			d.terminated = true
			return append(events, domain.StreamEvent{Type: domain.EventError, Err: f.Error})
		case f.Done:
			d.terminated = true
			return append(events, domain.StreamEvent{Type: domain.EventDone})
		case f.Token != "":
			d.text.WriteString(f.Token)
			events = append(events, domain.StreamEvent{Type: domain.EventToken, Token: f.Token})
		}
	}
	return events
}

// Terminated reports whether a terminal frame has been decoded.
func (d *Decoder) Terminated() bool {
	return d.terminated
}

// Text returns the reply text accumulated from token frames so far.
func (d *Decoder) Text() string {
	return d.text.String()
}
