package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ErrClosed = errors.New("store is closed")

// DefaultState is what a freshly reset device looks like.
const DefaultState = `{
  "interface": [
    {".id": "*1", "name": "ether1", "type": "ether", "mtu": "1500", "running": "true", "disabled": "false"},
    {".id": "*2", "name": "ether2", "type": "ether", "mtu": "1500", "running": "false", "disabled": "false"},
    {".id": "*3", "name": "bridge", "type": "bridge", "mtu": "auto", "running": "true", "disabled": "false"}
  ],
  "ip": {
    "address": [
      {".id": "*1", "address": "192.168.88.1/24", "network": "192.168.88.0", "interface": "bridge", "disabled": "false"}
    ],
    "route": [
      {".id": "*1", "dst-address": "0.0.0.0/0", "gateway": "10.0.0.1", "distance": "1"}
    ],
    "dhcp-server": {"lease": []},
    "firewall": {"filter": []}
  },
  "system": {
    "resource": [
      {"uptime": "1d2h3m", "version": "7.12 (stable)", "cpu-load": "3", "free-memory": "201326592", "board-name": "emulator"}
    ],
    "identity": [
      {"name": "MikroTik"}
    ]
  },
  "log": []
}`

// InmemoryStore keeps all menus in a single JSON document.
type InmemoryStore struct {
	mu     sync.Mutex
	values []byte

	// stop willl be closed when Close() is called
	stop chan struct{}
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values: []byte(""),
		stop:   make(chan struct{}),
	}
}

func (i *InmemoryStore) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.isRunning() {
		close(i.stop)
	}

	return nil
}

func (i *InmemoryStore) List(ctx context.Context, menu string) ([]map[string]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	rows, err := i.rows(menu)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, toProps(row))
	}

	return out, nil
}

func (i *InmemoryStore) Add(ctx context.Context, menu string, props map[string]string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	rows, err := i.rows(menu)
	if err != nil {
		return "", err
	}

	var last uint64
	for _, row := range rows {
		n, err := strconv.ParseUint(strings.TrimPrefix(row.Get(`\.id`).String(), "*"), 16, 64)
		if err == nil && n > last {
			last = n
		}
	}

	id := fmt.Sprintf("*%X", last+1)

	row := make(map[string]string, len(props)+1)
	for k, v := range props {
		row[k] = v
	}
	row[".id"] = id

	values, err := sjson.SetBytes(i.values, menuPath(menu)+".-1", row)
	if err != nil {
		return "", err
	}

	i.values = values
	return id, nil
}

// Update sets props on the row with the given id. An empty id selects the
// only row of single row menus such as `/system/identity`.
func (i *InmemoryStore) Update(ctx context.Context, menu, id string, props map[string]string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	idx, err := i.index(menu, id)
	if err != nil {
		return err
	}

	values := i.values
	for k, v := range props {
		if k == ".id" {
			continue
		}

		values, err = sjson.SetBytes(values, fmt.Sprintf("%s.%d.%s", menuPath(menu), idx, escapeKey(k)), v)
		if err != nil {
			return err
		}
	}

	i.values = values
	return nil
}

func (i *InmemoryStore) Remove(ctx context.Context, menu, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if id == "" {
		return ErrNoSuchItem
	}

	idx, err := i.index(menu, id)
	if err != nil {
		return err
	}

	values, err := sjson.DeleteBytes(i.values, fmt.Sprintf("%s.%d", menuPath(menu), idx))
	if err != nil {
		return err
	}

	i.values = values
	return nil
}

func (i *InmemoryStore) Restore(values []byte) error {
	if len(values) > 0 && !gjson.ValidBytes(values) {
		return fmt.Errorf("restore: invalid JSON document")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.values = values
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.values) == 0 {
		return []byte("{}"), nil
	}

	return i.values, nil
}

func (i *InmemoryStore) rows(menu string) ([]gjson.Result, error) {
	if !i.isRunning() {
		return nil, ErrClosed
	}

	result := gjson.GetBytes(i.values, menuPath(menu))
	if !result.IsArray() {
		return nil, fmt.Errorf("%s: %w", menu, ErrNoSuchMenu)
	}

	return result.Array(), nil
}

func (i *InmemoryStore) index(menu, id string) (int, error) {
	rows, err := i.rows(menu)
	if err != nil {
		return 0, err
	}

	if id == "" {
		if len(rows) == 1 {
			return 0, nil
		}

		return 0, ErrNoSuchItem
	}

	for idx, row := range rows {
		if row.Get(`\.id`).String() == id {
			return idx, nil
		}
	}

	return 0, ErrNoSuchItem
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

// menuPath turns `/ip/address` into the JSON path `ip.address`.
func menuPath(menu string) string {
	parts := strings.Split(strings.Trim(menu, "/"), "/")
	for n, p := range parts {
		parts[n] = escapeKey(p)
	}

	return strings.Join(parts, ".")
}

func escapeKey(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(key)
}

func toProps(row gjson.Result) map[string]string {
	props := make(map[string]string)

	row.ForEach(func(key, value gjson.Result) bool {
		props[key.String()] = value.String()
		return true
	})

	return props
}

var _ Store = (*InmemoryStore)(nil)
