// Package logger centralizes the logrus setup shared by every component of
// the session manager, following the per-category *logrus.Entry convention
// the teacher uses for its forwarder and PFCP packages.
package logger

import "github.com/sirupsen/logrus"

const fieldComponent = "component"

// Root is the process-wide logrus logger. Callers needing a differently
// configured logger (tests wanting a silent logger, for instance) can
// point Root at their own *logrus.Logger before any component is built.
var Root = logrus.New()

// For returns a *logrus.Entry tagged with the given component name, used by
// every package to produce consistently shaped log lines.
func For(component string) *logrus.Entry {
	return Root.WithField(fieldComponent, component)
}
