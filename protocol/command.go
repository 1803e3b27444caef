package protocol

import (
	"errors"
	"strings"
)

const CmdLogin = "/login"

var ErrEmptyCommand = errors.New("protocol: command sentence is empty")

// Command is a request sentence split into its parts.
type Command struct {
	Path    string
	Attrs   map[string]string
	Queries map[string]string
}

// ParseCommand splits a request sentence into its path, attribute words and
// query words. Words that are neither are ignored.
func ParseCommand(sentence Sentence) (*Command, error) {
	if len(sentence) == 0 {
		return nil, ErrEmptyCommand
	}

	cmd := &Command{
		Path:    sentence[0],
		Attrs:   ParseAttributes(sentence[1:]),
		Queries: make(map[string]string),
	}

	for _, word := range sentence[1:] {
		if !strings.HasPrefix(word, "?") {
			continue
		}

		kv := strings.SplitN(word[1:], "=", 2)
		if len(kv) != 2 {
			continue
		}

		cmd.Queries[kv[0]] = kv[1]
	}

	return cmd, nil
}

// Menu returns the path without its final action, e.g. `/ip/address` for
// `/ip/address/print`.
func (c *Command) Menu() string {
	i := strings.LastIndexByte(c.Path, '/')
	if i <= 0 {
		return ""
	}

	return c.Path[:i]
}

// Action returns the final segment of the path, e.g. `print`.
func (c *Command) Action() string {
	return c.Path[strings.LastIndexByte(c.Path, '/')+1:]
}

// LoginWords returns the second login round sentence.
func LoginWords(username, password string) []string {
	return []string{CmdLogin, Attribute("name", username), Attribute("password", password)}
}
