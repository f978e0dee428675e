package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Recover must be deferred directly: defer infra.Recover(entry, "job").
// It swallows the panic and logs where it happened.
func Recover(entry *log.Entry, id string) {
	if err := recover(); err != nil {
		entry.WithField("job", id).Errorf("panic recovered: %v, %s", err, identifyPanic())
	}
}

// RecoverErr is Recover for functions with a named error result:
// defer infra.RecoverErr(entry, "job", &err). The panic becomes *errp.
func RecoverErr(entry *log.Entry, id string, errp *error) {
	if r := recover(); r != nil {
		where := identifyPanic()
		entry.WithField("job", id).Errorf("panic recovered: %v, %s", r, where)
		*errp = fmt.Errorf("panic in %s: %v", id, r)
	}
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(4, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}

	return fmt.Sprintf("pc:%x", pc)
}
