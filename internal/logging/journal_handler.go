package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry, so `journalctl -t biodockify`
// shows host and engine output together.
const SyslogIdentifier = "biodockify"

// JournalHandler writes records to the systemd journal as structured
// entries. Attributes become journal fields; grouped attributes are
// prefixed with their group names, e.g. GROUP_KEY.
type JournalHandler struct {
	level  slog.Leveler
	prefix string
	fields map[string]string // from WithAttrs, already encoded
}

func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	// journal.Send sets MESSAGE and PRIORITY.
	fields := make(map[string]string, len(h.fields)+r.NumAttrs()+1)
	for k, v := range h.fields {
		fields[k] = v
	}
	r.Attrs(func(a slog.Attr) bool {
		encodeJournalAttr(fields, h.prefix, a)
		return true
	})
	fields["SYSLOG_IDENTIFIER"] = SyslogIdentifier

	if err := journal.Send(r.Message, journalPriority(r.Level), fields); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v: %s\n", err, r.Message)
		return err
	}
	return nil
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	fields := make(map[string]string, len(h.fields)+len(attrs))
	for k, v := range h.fields {
		fields[k] = v
	}
	for _, a := range attrs {
		encodeJournalAttr(fields, h.prefix, a)
	}
	return &JournalHandler{level: h.level, prefix: h.prefix, fields: fields}
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{level: h.level, prefix: h.prefix + journalFieldName(name) + "_", fields: h.fields}
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalFieldName maps an attribute key to a valid journal field name:
// upper case letters, digits and underscores, not starting with an underscore.
func journalFieldName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	return strings.TrimLeft(name, "_")
}

func encodeJournalAttr(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += journalFieldName(a.Key) + "_"
		}
		for _, ga := range a.Value.Group() {
			encodeJournalAttr(fields, prefix, ga)
		}
		return
	}

	name := journalFieldName(prefix + a.Key)
	if name == "" {
		return
	}
	fields[name] = journalValue(a.Value)
}

func journalValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		return v.String()
	}
}

// IsJournalAvailable reports whether the journal socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
