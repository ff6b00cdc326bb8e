package ws

import (
	"encoding/json"

	"marketplace-chat/domain/chat"
	"marketplace-chat/errors"
)

type FrameType int

const (
	FrameInvocation FrameType = 1
	FrameCompletion FrameType = 3
	FramePing       FrameType = 6
)

// Frame is the JSON envelope exchanged over the hub socket, one per text message.
type Frame struct {
	Type         FrameType `json:"type"`
	InvocationID string    `json:"invocationId,omitempty"`
	Target       string    `json:"target,omitempty"`
	Arguments    []string  `json:"arguments,omitempty"`
	Error        string    `json:"error,omitempty"`
}

func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, errors.ErrInvalidFrame
	}
	return f, nil
}

func pushFrame(p chat.Push) Frame {
	return Frame{Type: FrameInvocation, Target: p.Target(), Arguments: p.Arguments()}
}

func completionFrame(invocationID string, err error) Frame {
	return Frame{Type: FrameCompletion, InvocationID: invocationID, Error: errors.FaultMessage(err)}
}
