package certwatch

import (
	"context"
	"time"

	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
	"github.com/heartportal/fleet-sentinel/pkg/probes"
)

// Expiry classification thresholds in days
const (
	warningThresholdDays  = 30
	criticalThresholdDays = 7
)

// ExpiryClassification categorizes how close the certificate is to expiry
type ExpiryClassification string

const (
	ExpiryOK       ExpiryClassification = "ok"
	ExpiryWarning  ExpiryClassification = "warning"
	ExpiryCritical ExpiryClassification = "critical"
)

// CertificateStatus is the result of one certificate check. It is recomputed
// fully on every check; no history is kept.
type CertificateStatus struct {
	Domain         string               `json:"domain"`
	ExpiresAt      time.Time            `json:"expires_at"`
	DaysRemaining  int                  `json:"days_remaining"`
	Classification ExpiryClassification `json:"classification"`
	CheckedAt      time.Time            `json:"checked_at"`
}

// Watcher computes days-until-expiry for the monitored domain. Advisory only:
// it classifies but never triggers renewal.
type Watcher struct {
	expirer probes.CertificateExpirer
	now     func() time.Time
	logger  logging.Logger
}

// NewWatcher creates a certificate watcher over the given expiry capability
func NewWatcher(expirer probes.CertificateExpirer, logger logging.Logger) *Watcher {
	return &Watcher{
		expirer: expirer,
		now:     time.Now,
		logger:  logger,
	}
}

// CheckCertificate performs one expiry check for the domain
func (w *Watcher) CheckCertificate(ctx context.Context, domain string) (CertificateStatus, error) {
	expiresAt, err := w.expirer.CertificateExpiry(ctx, domain)
	if err != nil {
		return CertificateStatus{}, errors.NewNetworkError("certificate expiry check failed", err).WithContext("domain", domain)
	}

	now := w.now()
	daysRemaining := int(expiresAt.Sub(now).Hours() / 24)

	status := CertificateStatus{
		Domain:         domain,
		ExpiresAt:      expiresAt,
		DaysRemaining:  daysRemaining,
		Classification: ClassifyDaysRemaining(daysRemaining),
		CheckedAt:      now,
	}

	switch status.Classification {
	case ExpiryCritical:
		w.logger.Errorf("Certificate expiry critical, domain: %s, days_remaining: %d", domain, daysRemaining)
	case ExpiryWarning:
		w.logger.Warnf("Certificate expiring soon, domain: %s, days_remaining: %d", domain, daysRemaining)
	default:
		w.logger.Debugf("Certificate OK, domain: %s, days_remaining: %d", domain, daysRemaining)
	}

	return status, nil
}

// ClassifyDaysRemaining maps days-until-expiry to its classification
func ClassifyDaysRemaining(days int) ExpiryClassification {
	switch {
	case days > warningThresholdDays:
		return ExpiryOK
	case days >= criticalThresholdDays:
		return ExpiryWarning
	default:
		return ExpiryCritical
	}
}
