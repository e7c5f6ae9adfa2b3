package alerting

import (
	"sync"
	"time"

	"github.com/heartportal/fleet-sentinel/pkg/logging"
)

// DefaultAlertCooldown is the per-service suppression window for repeated alerts
const DefaultAlertCooldown = 30 * time.Minute

// CooldownSink suppresses repeated alerts for the same service within a
// cooldown window. The first alert of each window is always delivered;
// suppressed alerts are counted, not dropped silently.
type CooldownSink struct {
	next     Sink
	cooldown time.Duration
	now      func() time.Time
	logger   logging.Logger

	mutex      sync.Mutex
	lastEmit   map[string]time.Time
	suppressed map[string]int
}

// NewCooldownSink wraps a sink with per-service cooldown suppression
func NewCooldownSink(next Sink, cooldown time.Duration, logger logging.Logger) *CooldownSink {
	if cooldown <= 0 {
		cooldown = DefaultAlertCooldown
	}
	return &CooldownSink{
		next:       next,
		cooldown:   cooldown,
		now:        time.Now,
		logger:     logger,
		lastEmit:   make(map[string]time.Time),
		suppressed: make(map[string]int),
	}
}

func (s *CooldownSink) Emit(record AlertRecord) error {
	s.mutex.Lock()

	now := s.now()
	if last, ok := s.lastEmit[record.ServiceName]; ok && now.Sub(last) < s.cooldown {
		s.suppressed[record.ServiceName]++
		count := s.suppressed[record.ServiceName]
		s.mutex.Unlock()

		s.logger.Debugf("Alert suppressed by cooldown, service: %s, reason: %s, suppressed_in_window: %d",
			record.ServiceName, record.Reason, count)
		return nil
	}

	s.lastEmit[record.ServiceName] = now
	s.suppressed[record.ServiceName] = 0
	s.mutex.Unlock()

	return s.next.Emit(record)
}

// SuppressedCount returns how many alerts were suppressed for the service in
// the current cooldown window
func (s *CooldownSink) SuppressedCount(serviceName string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.suppressed[serviceName]
}
