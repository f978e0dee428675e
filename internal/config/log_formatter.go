package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	colorRed         = 31
	colorGreen       = 32
	colorYellow      = 33
	colorBlue        = 36
	colorGray        = 37
	colorLightGreen  = 92
	colorLightYellow = 93
	colorCyan        = 96
)

// QrFormatter prints entries as colored key=value pairs, "context" first and
// the remaining fields in key order.
type QrFormatter struct {
	NoColors bool
}

func (f *QrFormatter) Format(entry *log.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	f.pair(b, "level", levelColor(entry.Level), strings.ToUpper(entry.Level.String())[:4])
	f.pair(b, "ts", colorLightYellow, entry.Time.Format("2006-01-02 15:04:05.000"))

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == "context" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, ok := entry.Data["context"]; ok {
		keys = append([]string{"context"}, keys...)
	}

	for _, k := range keys {
		s := renderValue(entry.Data[k])
		if s == "" {
			continue
		}
		valueColor := colorCyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = colorGreen
		} else if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
			valueColor = colorLightYellow
		}
		f.pair(b, k, valueColor, s)
	}
	f.pair(b, "msg", colorLightGreen, strconv.Quote(entry.Message))

	out := strings.TrimPrefix(b.String(), " ")
	out = strings.ReplaceAll(out, "\r", `\r`)
	out = strings.ReplaceAll(out, "\n", `\n`) + "\n"
	return []byte(out), nil
}

func (f *QrFormatter) pair(b *bytes.Buffer, key string, valueColor int, value string) {
	if f.NoColors {
		fmt.Fprintf(b, " %s=%s", key, value)
		return
	}
	fmt.Fprintf(b, " \x1b[%dm%s\x1b[0m=\x1b[%dm%s\x1b[0m", colorCyan, key, valueColor, value)
}

func renderValue(v any) string {
	if err, ok := v.(error); ok {
		return strconv.Quote(err.Error())
	}
	m, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(m)
}

func levelColor(level log.Level) int {
	switch level {
	case log.DebugLevel, log.TraceLevel:
		return colorGray
	case log.WarnLevel:
		return colorYellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		return colorRed
	default:
		return colorBlue
	}
}
