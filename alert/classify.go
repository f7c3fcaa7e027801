package alert

import (
	"go.uber.org/zap"

	"github.com/stratalake/dqguard/config"
	"github.com/stratalake/dqguard/quality"
)

// Classification is the severity band a cycle's breaches landed in, with
// the band's notification and escalation settings attached.
type Classification struct {
	Severity     quality.Severity `json:"severity"`
	PercentBelow float64          `json:"percent_below"`
	Escalate     bool             `json:"escalate"`
	Channels     []string         `json:"channels"`
}

// Classifier maps breaches to a severity using the configured bands.
type Classifier struct {
	cfg config.SeverityLevelsConfig
	log *zap.SugaredLogger
}

// NewClassifier creates a classifier over the configured severity bands.
func NewClassifier(cfg config.SeverityLevelsConfig, log *zap.SugaredLogger) *Classifier {
	return &Classifier{cfg: cfg, log: log}
}

// Classify measures how far below their bound the success-rate breaches
// fell, as a percentage of the bound, takes the maximum across breaches,
// and picks the highest band whose threshold that maximum reaches. Count
// breaches carry no deviation measure and cannot raise the severity on
// their own; a cycle whose deviation stays under the lowest band raises no
// alert at all.
func (c *Classifier) Classify(breaches []quality.Breach) (Classification, bool) {
	if len(breaches) == 0 {
		return Classification{}, false
	}

	maxBelow := 0.0
	for _, b := range breaches {
		if pb := b.PercentBelow(); pb > maxBelow {
			maxBelow = pb
		}
	}

	bands := []struct {
		severity quality.Severity
		cfg      config.SeverityLevelConfig
	}{
		{quality.SeverityCritical, c.cfg.Critical},
		{quality.SeverityHigh, c.cfg.High},
		{quality.SeverityMedium, c.cfg.Medium},
		{quality.SeverityLow, c.cfg.Low},
	}

	for _, band := range bands {
		if maxBelow >= band.cfg.Threshold {
			cls := Classification{
				Severity:     band.severity,
				PercentBelow: maxBelow,
				Escalate:     band.cfg.Escalation,
				Channels:     append([]string(nil), band.cfg.NotificationChannels...),
			}
			if c.log != nil {
				c.log.Infow("Breaches classified",
					"severity", string(cls.Severity),
					"percent_below", cls.PercentBelow,
					"breaches", len(breaches))
			}
			return cls, true
		}
	}

	if c.log != nil && len(breaches) > 0 {
		c.log.Debugw("Breaches below alerting bands",
			"percent_below", maxBelow,
			"breaches", len(breaches))
	}
	return Classification{}, false
}
