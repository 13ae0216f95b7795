// Package usage maintains the durable per-client daily ledger of
// transcription seconds consumed per backend.
package usage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"ai-speech-proxy-service/internal/observability/logging"
	"ai-speech-proxy-service/internal/observability/metrics"
)

// Backend identifies which transcription backend consumed the audio.
type Backend string

const (
	BackendLocal Backend = "local"
	BackendCloud Backend = "cloud"
)

// ledger file layout
const (
	headerLine = "Date;LocalSeconds;CloudSeconds"
	dateLayout = "2006-01-02"
)

// ErrNoUsage is returned by UsageFor when no client has a record for the
// requested date. Callers must distinguish this from an empty-but-present
// mapping.
var ErrNoUsage = errors.New("no usage data for date")

// DayUsage holds one client's counters for a single day. Counters are
// monotonically non-decreasing within the day.
type DayUsage struct {
	LocalSeconds int64
	CloudSeconds int64
}

// Ledger is a per-client, per-day usage store backed by one append-style
// text file per client. The last row of each file is the mutable
// current-day row; all earlier rows are closed days.
//
// Updates are read-modify-write over the whole file and therefore must be
// serialized per client; concurrent same-client requests would otherwise
// lose updates.
type Ledger struct {
	dir     string
	metrics *metrics.Metrics

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// NewLedger creates a ledger rooted at dir. The directory is created lazily
// on first write.
func NewLedger(dir string) *Ledger {
	return &Ledger{
		dir:     dir,
		metrics: metrics.DefaultMetrics,
		locks:   make(map[string]*sync.Mutex),
	}
}

// clientLock returns the serialization lock for one client, creating it on
// first use.
func (l *Ledger) clientLock(clientID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[clientID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[clientID] = lock
	}
	return lock
}

func (l *Ledger) clientPath(clientID string) string {
	return filepath.Join(l.dir, clientID+".log")
}

// Record credits floor(seconds) to the given backend's counter in the
// client's current-day row, creating the file and the row as needed. The
// whole-file rewrite happens under the client's lock so that concurrent
// same-day updates sum exactly.
func (l *Ledger) Record(clientID string, day time.Time, seconds float64, backend Backend) error {
	credit := int64(seconds) // truncation to whole seconds is the ledger's unit
	date := day.Format(dateLayout)

	lock := l.clientLock(clientID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		l.metrics.RecordLedgerWriteError()
		return fmt.Errorf("create ledger dir: %w", err)
	}

	path := l.clientPath(clientID)
	rows, err := readRows(path)
	if err != nil {
		l.metrics.RecordLedgerWriteError()
		return err
	}

	if n := len(rows); n > 0 && rows[n-1].date == date {
		switch backend {
		case BackendCloud:
			rows[n-1].cloud += credit
		default:
			rows[n-1].local += credit
		}
	} else {
		row := ledgerRow{date: date}
		switch backend {
		case BackendCloud:
			row.cloud = credit
		default:
			row.local = credit
		}
		rows = append(rows, row)
	}

	if err := writeRows(path, rows); err != nil {
		l.metrics.RecordLedgerWriteError()
		return err
	}

	l.metrics.RecordUsage(string(backend), float64(credit))
	lg := logging.WithBackend(clientID, string(backend))
	lg.Debug().
		Int64("seconds", credit).
		Str("date", date).
		Msg("Usage recorded")
	return nil
}

// UsageFor returns the per-client counters for the given date, restricted
// to clients that have a row for that date. Returns ErrNoUsage when the
// ledger directory is absent, empty, or no client has a row for the date.
func (l *Ledger) UsageFor(day time.Time) (map[string]DayUsage, error) {
	date := day.Format(dateLayout)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoUsage
		}
		return nil, fmt.Errorf("read ledger dir: %w", err)
	}

	result := make(map[string]DayUsage)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".log") {
			continue
		}
		clientID := strings.TrimSuffix(name, ".log")

		lock := l.clientLock(clientID)
		lock.Lock()
		rows, err := readRows(filepath.Join(l.dir, name))
		lock.Unlock()
		if err != nil {
			lg := logging.WithClient(clientID)
			lg.Error().Err(err).Msg("Skipping unreadable ledger file")
			continue
		}

		// Only the last row can be the requested day when querying "today",
		// but scan all rows so historical dates also resolve.
		for _, row := range rows {
			if row.date == date {
				result[clientID] = DayUsage{LocalSeconds: row.local, CloudSeconds: row.cloud}
				break
			}
		}
	}

	if len(result) == 0 {
		return nil, ErrNoUsage
	}
	return result, nil
}

type ledgerRow struct {
	date  string
	local int64
	cloud int64
}

// readRows parses a client ledger file. A missing file yields no rows.
func readRows(path string) ([]ledgerRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var rows []ledgerRow
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == headerLine {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) != 3 {
			return nil, fmt.Errorf("ledger %s: malformed row %d: %q", path, i+1, line)
		}
		local, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger %s: row %d: %w", path, i+1, err)
		}
		cloud, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ledger %s: row %d: %w", path, i+1, err)
		}
		rows = append(rows, ledgerRow{date: parts[0], local: local, cloud: cloud})
	}
	return rows, nil
}

// writeRows rewrites the full ledger file atomically via temp file + rename
// so a crash mid-write cannot truncate history.
func writeRows(path string, rows []ledgerRow) error {
	var b strings.Builder
	b.WriteString(headerLine)
	b.WriteByte('\n')
	for _, row := range rows {
		fmt.Fprintf(&b, "%s;%d;%d\n", row.date, row.local, row.cloud)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
