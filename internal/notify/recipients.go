package notify

import (
	"context"
	"sort"
	"sync"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"
)

type (
	Recipient struct {
		ID          string
		Name        string
		Permissions []string
	}

	// Permission decides whether a recipient is an operator.
	Permission func(Recipient) bool

	// Directory knows which users are currently reachable.
	Directory interface {
		Lookup(ctx context.Context, id string) (Recipient, bool)
		Online(ctx context.Context) []Recipient
	}

	Sender interface {
		Send(ctx context.Context, to Recipient, text string) error
	}
)

func (r Recipient) HasPermission(permission string) bool {
	return tool.In(permission, r.Permissions...)
}

func RequirePermission(permission string) Permission {
	return func(r Recipient) bool {
		return r.HasPermission(permission)
	}
}

// StaticDirectory is an in-memory Directory; Set and Remove model users
// coming online and going away.
type StaticDirectory struct {
	mu         sync.RWMutex
	recipients map[string]Recipient
}

func NewStaticDirectory(recipients ...Recipient) *StaticDirectory {
	d := &StaticDirectory{recipients: map[string]Recipient{}}
	for _, r := range recipients {
		d.Set(r)
	}
	return d
}

// OperatorsFromConfig builds recipients from an id:name map, each holding permission.
func OperatorsFromConfig(operators map[string]string, permission string) []Recipient {
	res := make([]Recipient, 0, len(operators))
	for id, name := range operators {
		res = append(res, Recipient{ID: id, Name: name, Permissions: []string{permission}})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (d *StaticDirectory) Set(r Recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recipients[r.ID] = r
}

func (d *StaticDirectory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.recipients, id)
}

func (d *StaticDirectory) Lookup(_ context.Context, id string) (Recipient, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.recipients[id]
	return r, ok
}

func (d *StaticDirectory) Online(_ context.Context) []Recipient {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]Recipient, 0, len(d.recipients))
	for _, r := range d.recipients {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// LogSender writes every message to the log instead of a chat.
type LogSender struct {
	l *log.Entry
}

func NewLogSender() *LogSender {
	return &LogSender{l: log.WithField("context", "notifications")}
}

func (s *LogSender) Send(_ context.Context, to Recipient, text string) error {
	s.l.WithFields(log.Fields{
		"to_id":   to.ID,
		"to_name": to.Name,
	}).Info(text)
	return nil
}
