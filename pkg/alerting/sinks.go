package alerting

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
)

// LogSink appends alert records as JSON lines to a file. External rotation of
// the file is out of scope; the sink reopens on every emit so a rotated file
// is picked up transparently.
type LogSink struct {
	path   string
	logger logging.Logger
	mutex  sync.Mutex
}

// NewLogSink creates a file-backed alert sink
func NewLogSink(path string, logger logging.Logger) *LogSink {
	return &LogSink{
		path:   path,
		logger: logger,
	}
}

func (s *LogSink) Emit(record AlertRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	line, err := json.Marshal(record)
	if err != nil {
		return errors.NewInternalError("failed to encode alert record", err).WithContext("service", record.ServiceName)
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewIOError("failed to open alert log", err).WithContext("path", s.path)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return errors.NewIOError("failed to append alert record", err).WithContext("path", s.path)
	}

	s.logger.Warnf("Alert emitted, service: %s, reason: %s", record.ServiceName, record.Reason)
	return nil
}

// MemorySink retains alert records in memory, used by tests and the status API
type MemorySink struct {
	mutex   sync.Mutex
	records []AlertRecord
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(record AlertRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of all emitted records
func (s *MemorySink) Records() []AlertRecord {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	recordsCopy := make([]AlertRecord, len(s.records))
	copy(recordsCopy, s.records)
	return recordsCopy
}

// MultiSink fans one record out to several sinks, collecting failures
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (s *MultiSink) Emit(record AlertRecord) error {
	errorCollection := errors.NewErrorCollection()
	for _, sink := range s.sinks {
		errorCollection.Add(sink.Emit(record))
	}
	return errorCollection.ToError()
}
