// Package logging configures the structured logger shared by the sync
// worker and cleanup worker, following the same logrus conventions the
// teacher's walletserver middleware and internal managers use.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger configured for the given component name.
// Each call creates a separate logger instance tagged with a "component"
// field so log lines can be filtered per subsystem.
func New(component string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger.WithField("component", component)
}
