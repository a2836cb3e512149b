package cursor

import (
	"fmt"
	"regexp"

	"github.com/vietddude/sqllogs/internal/core/domain"
)

// DefaultHealthbotPattern matches the synthetic liveness update.
const DefaultHealthbotPattern = `(?i)update\s+healthbot`

// Classifier drops healthbot statements and routes the rest by table name.
type Classifier struct {
	internal  map[string]struct{}
	healthbot *regexp.Regexp
}

// NewClassifier builds a classifier. An empty pattern uses DefaultHealthbotPattern.
func NewClassifier(internalTables []string, healthbotPattern string) (*Classifier, error) {
	if healthbotPattern == "" {
		healthbotPattern = DefaultHealthbotPattern
	}
	re, err := regexp.Compile(healthbotPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid healthbot pattern: %w", err)
	}

	internal := make(map[string]struct{}, len(internalTables))
	for _, name := range internalTables {
		internal[name] = struct{}{}
	}
	return &Classifier{internal: internal, healthbot: re}, nil
}

// IsHealthbot reports whether stmt is a liveness update.
func (c *Classifier) IsHealthbot(stmt string) bool {
	return c.healthbot.MatchString(stmt)
}

// Destination routes an event. Unresolved table names go external.
func (c *Classifier) Destination(ev domain.RawEvent) domain.Destination {
	if ev.TableName == nil {
		return domain.DestinationExternal
	}
	if _, ok := c.internal[*ev.TableName]; ok {
		return domain.DestinationInternal
	}
	return domain.DestinationExternal
}

// Classify partitions events, keeping their order within each partition.
func (c *Classifier) Classify(events []domain.RawEvent) domain.Partition {
	var p domain.Partition
	for _, ev := range events {
		if c.IsHealthbot(ev.Statement) {
			continue
		}
		ce := domain.ClassifiedEvent{RawEvent: ev, Destination: c.Destination(ev)}
		if ce.Destination == domain.DestinationInternal {
			p.Internal = append(p.Internal, ce)
		} else {
			p.External = append(p.External, ce)
		}
	}
	return p
}
