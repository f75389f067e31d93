package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Channel errors. Messages failing to decode are logged and dropped by the
// receiver; nothing is sent back.
var (
	ErrMalformed      = errors.New("malformed message")
	ErrUnknownCommand = errors.New("unknown command")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

type envelope struct {
	Command string `json:"command"`
}

var commandTypes = map[string]func() Command{
	CmdReady:           func() Command { return &Ready{} },
	CmdRefresh:         func() Command { return &Refresh{} },
	CmdNavigate:        func() Command { return &Navigate{} },
	CmdSort:            func() Command { return &Sort{} },
	CmdFilter:          func() Command { return &Filter{} },
	CmdClearFilters:    func() Command { return &ClearFilters{} },
	CmdExecuteQuery:    func() Command { return &ExecuteQuery{} },
	CmdExport:          func() Command { return &Export{} },
	CmdCopyToClipboard: func() Command { return &CopyToClipboard{} },
}

var messageTypes = map[string]func() Message{
	MsgUpdateData: func() Message { return &UpdateData{} },
	MsgError:      func() Message { return &Error{} },
	MsgNotice:     func() Message { return &Notice{} },
}

// EncodeCommand renders c as a flat JSON envelope.
func EncodeCommand(c Command) ([]byte, error) {
	return encode(c.Name(), c)
}

// EncodeMessage renders m as a flat JSON envelope.
func EncodeMessage(m Message) ([]byte, error) {
	return encode(m.Name(), m)
}

// DecodeCommand parses and validates a command envelope. The returned value
// is one of the command types in this package, never a pointer.
func DecodeCommand(data []byte) (Command, error) {
	name, err := peekName(data)
	if err != nil {
		return nil, err
	}
	newCmd, ok := commandTypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	cmd := newCmd()
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	if err := getValidator().Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return deref(cmd), nil
}

// DecodeMessage parses a host message envelope.
func DecodeMessage(data []byte) (Message, error) {
	name, err := peekName(data)
	if err != nil {
		return nil, err
	}
	newMsg, ok := messageTypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	msg := newMsg()
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	switch m := msg.(type) {
	case *UpdateData:
		return *m, nil
	case *Error:
		return *m, nil
	case *Notice:
		return *m, nil
	}
	return msg, nil
}

// ValidateCommand checks the structural constraints of c.
func ValidateCommand(c Command) error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, c.Name(), err)
	}
	return nil
}

func peekName(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Command == "" {
		return "", fmt.Errorf("%w: missing command field", ErrMalformed)
	}
	return env.Command, nil
}

func encode(name string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	head := fmt.Appendf(nil, `{"command":%q`, name)
	body = bytes.TrimPrefix(body, []byte("{"))
	if !bytes.Equal(body, []byte("}")) {
		head = append(head, ',')
	}
	return append(head, body...), nil
}

func deref(c Command) Command {
	switch v := c.(type) {
	case *Ready:
		return *v
	case *Refresh:
		return *v
	case *Navigate:
		return *v
	case *Sort:
		return *v
	case *Filter:
		return *v
	case *ClearFilters:
		return *v
	case *ExecuteQuery:
		return *v
	case *Export:
		return *v
	case *CopyToClipboard:
		return *v
	}
	return c
}
