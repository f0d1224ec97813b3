// Package naming produces the physical names of OU resources.
package naming

import "fmt"

// Producer builds names of the form <prefix>-<account>-<region>-<name>.
type Producer struct {
	prefix string
}

// NewProducer returns a Producer using prefix, normally the OU name.
func NewProducer(prefix string) Producer {
	return Producer{prefix: prefix}
}

// Produce returns the name of humanName in account and region.
func (p Producer) Produce(humanName, accountID, region string) string {
	return fmt.Sprintf("%s-%s-%s-%s", p.prefix, accountID, region, humanName)
}

// Truncate shortens s to at most n bytes.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}
