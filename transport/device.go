package transport

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/luma/rosapi/protocol"
	"github.com/luma/rosapi/storage"
)

const (
	MsgInvalidLogin = "invalid user name or password (6)"
	MsgNotLoggedIn  = "not logged in"
	MsgNoSuchCmd    = "no such command"
	MsgQuit         = "session terminated on request"
)

// Session is the per connection state of the emulated device.
type Session struct {
	LoggedIn bool
	Quit     bool
}

// Device answers API commands the way a RouterOS device would, backed by a
// storage.Store.
type Device struct {
	username string
	password string
	store    storage.Store
}

func NewDevice(username, password string, store storage.Store) *Device {
	return &Device{username: username, password: password, store: store}
}

// Handle runs one command sentence and returns the reply sentences.
func (d *Device) Handle(ctx context.Context, s *Session, sentence protocol.Sentence) [][]string {
	cmd, err := protocol.ParseCommand(sentence)
	if err != nil {
		return trap(MsgNoSuchCmd)
	}

	switch {
	case cmd.Path == protocol.CmdLogin:
		return d.login(s, cmd)

	case cmd.Path == "/quit":
		s.Quit = true
		return [][]string{{protocol.TagFatal, MsgQuit}}

	case !s.LoggedIn:
		return trap(MsgNotLoggedIn)
	}

	switch cmd.Action() {
	case "print", "getall":
		return d.print(ctx, cmd)

	case "add":
		id, err := d.store.Add(ctx, cmd.Menu(), cmd.Attrs)
		if err != nil {
			return storeTrap(err)
		}

		return [][]string{{protocol.TagDone, protocol.Attribute("ret", id)}}

	case "set":
		if err := d.store.Update(ctx, cmd.Menu(), cmd.Attrs[".id"], cmd.Attrs); err != nil {
			return storeTrap(err)
		}

		return done()

	case "remove":
		id, ok := cmd.Attrs[".id"]
		if !ok {
			return trap("no such item")
		}

		for _, one := range strings.Split(id, ",") {
			if err := d.store.Remove(ctx, cmd.Menu(), one); err != nil {
				return storeTrap(err)
			}
		}

		return done()

	default:
		return trap(MsgNoSuchCmd)
	}
}

func (d *Device) login(s *Session, cmd *protocol.Command) [][]string {
	name, ok := cmd.Attrs["name"]
	if !ok {
		return done()
	}

	if name != d.username || cmd.Attrs["password"] != d.password {
		return trap(MsgInvalidLogin)
	}

	s.LoggedIn = true
	return done()
}

func (d *Device) print(ctx context.Context, cmd *protocol.Command) [][]string {
	rows, err := d.store.List(ctx, cmd.Menu())
	if err != nil {
		return storeTrap(err)
	}

	var proplist []string
	if list, ok := cmd.Attrs[".proplist"]; ok {
		proplist = strings.Split(list, ",")
	}

	var out [][]string

rows:
	for _, row := range rows {
		for k, v := range cmd.Queries {
			if row[k] != v {
				continue rows
			}
		}

		out = append(out, record(row, proplist))
	}

	return append(out, []string{protocol.TagDone})
}

// record renders a row as a `!re` sentence with `.id` first and the rest in a
// stable order.
func record(row map[string]string, proplist []string) []string {
	words := []string{protocol.TagRe}

	if proplist != nil {
		for _, k := range proplist {
			if v, ok := row[k]; ok {
				words = append(words, protocol.Attribute(k, v))
			}
		}

		return words
	}

	if id, ok := row[".id"]; ok {
		words = append(words, protocol.Attribute(".id", id))
	}

	for _, k := range sortedKeys(row) {
		if k == ".id" {
			continue
		}

		words = append(words, protocol.Attribute(k, row[k]))
	}

	return words
}

func done() [][]string {
	return [][]string{{protocol.TagDone}}
}

func trap(message string) [][]string {
	return [][]string{
		{protocol.TagTrap, protocol.Attribute("message", message)},
		{protocol.TagDone},
	}
}

func storeTrap(err error) [][]string {
	switch {
	case errors.Is(err, storage.ErrNoSuchMenu):
		return trap(storage.ErrNoSuchMenu.Error())
	case errors.Is(err, storage.ErrNoSuchItem):
		return trap(storage.ErrNoSuchItem.Error())
	default:
		return trap(err.Error())
	}
}

func sortedKeys(row map[string]string) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}
