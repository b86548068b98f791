package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var echoValidator = validator.New(validator.WithRequiredStructEnabled())

// EchoParams is EchoHandler's input: a required message plus an arbitrary
// repeat count, validated with go-playground/validator tags the way
// config.ValidateStruct validates config structs in the kept logger/config
// packages.
type EchoParams struct {
	Message string `json:"message" validate:"required"`
	Repeat  int    `json:"repeat" validate:"min=0,max=100"`
}

// EchoHandler validates its params and echoes them back as the result,
// driving the SUCCESS path of the execution state machine in tests.
type EchoHandler struct{}

// Execute implements Handler.
func (EchoHandler) Execute(_ context.Context, params map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("handler: echo: marshal params: %w", err)
	}
	var p EchoParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("handler: echo: unmarshal params: %w", err)
	}
	if p.Repeat == 0 {
		p.Repeat = 1
	}
	if err := echoValidator.Struct(&p); err != nil {
		return nil, fmt.Errorf("handler: echo: invalid params: %w", err)
	}

	messages := make([]string, p.Repeat)
	for i := range messages {
		messages[i] = p.Message
	}
	return map[string]any{"messages": messages}, nil
}
