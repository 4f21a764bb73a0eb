package errors

import "fmt"

// Collection accumulates the non-fatal problems of a batch operation
type Collection struct {
	Errors   []*Error `json:"errors"`
	Warnings []*Error `json:"warnings"`
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add files err as an error or a warning based on its severity
func (c *Collection) Add(err *Error) {
	if err == nil {
		return
	}
	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		c.Warnings = append(c.Warnings, err)
	} else {
		c.Errors = append(c.Errors, err)
	}
}

// AddWarning always files err as a warning regardless of its type
func (c *Collection) AddWarning(err *Error) {
	if err == nil {
		return
	}
	c.Warnings = append(c.Warnings, err)
}

// HasFatal returns true if any unrecoverable error was recorded
func (c *Collection) HasFatal() bool {
	for _, err := range c.Errors {
		if !err.Recoverable || err.GetSeverity() == SeverityFatal {
			return true
		}
	}
	return false
}

// All returns errors followed by warnings
func (c *Collection) All() []*Error {
	all := make([]*Error, 0, len(c.Errors)+len(c.Warnings))
	all = append(all, c.Errors...)
	return append(all, c.Warnings...)
}

// Messages returns the user-facing text of every recorded problem
func (c *Collection) Messages() []string {
	msgs := make([]string, 0, len(c.Errors)+len(c.Warnings))
	for _, err := range c.All() {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

// Count returns the total number of errors and warnings
func (c *Collection) Count() (errors, warnings int) {
	return len(c.Errors), len(c.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (c *Collection) Summary() string {
	errorCount, warningCount := c.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}
	return fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)
}
