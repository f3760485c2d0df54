package lifecycle

import (
	"time"

	"github.com/ignite/salon-crm/internal/domain"
)

// Classifier evaluates the waterfall against a fixed reference instant.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	ref Reference
}

// NewClassifier captures now once; every Classify call uses the same
// thresholds.
func NewClassifier(now time.Time) Classifier {
	return Classifier{ref: NewReference(now)}
}

// Reference returns the thresholds in use.
func (c Classifier) Reference() Reference { return c.ref }

// Classify returns the lifecycle tag of the first matching rule, or
// DefaultTag.
func (c Classifier) Classify(customer domain.Customer) domain.LifecycleTag {
	for _, rule := range waterfall {
		if rule.Match(customer, c.ref) {
			return rule.Tag
		}
	}
	return DefaultTag
}

// Classify is a convenience for one-off classification at now.
func Classify(customer domain.Customer, now time.Time) domain.LifecycleTag {
	return NewClassifier(now).Classify(customer)
}
