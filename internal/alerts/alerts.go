package alerts

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"papertrader/internal/logger"
	"papertrader/internal/models"
)

const alertCap = 100

// Sink хранит последние оповещения в памяти и дублирует их в лог.
// Отправка — fire-and-forget, ошибок не возвращает.
type Sink struct {
	mu     sync.Mutex
	alerts []models.Alert
	log    *logger.Logger
}

func New(log *logger.Logger) *Sink {
	return &Sink{log: log}
}

func (s *Sink) Send(category, message string, severity models.Severity) {
	alert := models.Alert{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Category:  category,
		Message:   message,
		Severity:  severity,
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	if len(s.alerts) > alertCap {
		s.alerts = s.alerts[len(s.alerts)-alertCap:]
	}
	s.mu.Unlock()

	entry := s.log.WithComponent("alerts").WithFields(map[string]interface{}{
		"category": category,
		"severity": severity,
	})
	switch severity {
	case models.SeverityCritical:
		entry.Error(message)
	case models.SeverityWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}

// Recent возвращает до n последних оповещений, новые первыми.
func (s *Sink) Recent(n int) []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.alerts) {
		n = len(s.alerts)
	}
	result := make([]models.Alert, 0, n)
	for i := len(s.alerts) - 1; i >= len(s.alerts)-n; i-- {
		result = append(result, s.alerts[i])
	}
	return result
}
