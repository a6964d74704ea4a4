package server

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/types"
)

// CommandHandler processes WebSocket commands against one session.
type CommandHandler struct {
	viewer *Viewer
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(viewer *Viewer) *CommandHandler {
	return &CommandHandler{viewer: viewer}
}

// Handle applies cmd to the controller and returns the reply: a
// types.SessionView on success or a types.WSError when the command was
// rejected. A rejected command leaves the session unchanged.
func (h *CommandHandler) Handle(c *session.Controller, cmd types.WSCommand) any {
	switch cmd.Type {
	case types.CommandState:
		return h.viewer.View(c, nil)
	case types.CommandSubmitIdentity:
		return h.handleSubmitIdentity(c, cmd)
	case types.CommandAnswer:
		return h.handleAnswer(c, cmd)
	case types.CommandRestart:
		c.Restart()
		return h.viewer.View(c, nil)
	default:
		slog.Warn("unknown WebSocket command type", "type", cmd.Type)
		return commandError(cmd.Type, "unknown command")
	}
}

func (h *CommandHandler) handleSubmitIdentity(c *session.Controller, cmd types.WSCommand) any {
	var fields map[string]string
	if len(cmd.Data) > 0 {
		if err := json.Unmarshal(cmd.Data, &fields); err != nil {
			slog.Warn("submit_identity: invalid JSON data", "error", err)
			return commandError(cmd.Type, "invalid data")
		}
	}

	if err := c.SubmitIdentity(fields); err != nil {
		return rejection(cmd.Type, err)
	}
	slog.Info("inspection started", "checklist", c.Checklist().ID, "inspection_id", c.State().ID)
	return h.viewer.View(c, nil)
}

func (h *CommandHandler) handleAnswer(c *session.Controller, cmd types.WSCommand) any {
	var data types.WSAnswerData
	if err := json.Unmarshal(cmd.Data, &data); err != nil {
		slog.Warn("answer: invalid JSON data", "error", err)
		return commandError(cmd.Type, "invalid data")
	}

	if err := c.Answer(data.Response); err != nil {
		return rejection(cmd.Type, err)
	}
	return h.viewer.View(c, nil)
}

// rejection converts a controller error into the error reply.
func rejection(command string, err error) types.WSError {
	reply := commandError(command, err.Error())
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		reply.Invalid = verr.FieldKeys()
	}
	return reply
}

func commandError(command, msg string) types.WSError {
	return types.WSError{
		Type:    types.MessageError,
		Command: command,
		Error:   msg,
	}
}
