package logger

import (
	"time"
)

// OperationLogger logs the steps of one pipeline stage. Every line carries
// the operation name and the fields added so far; the closing line also
// carries the elapsed time and a status.
type OperationLogger struct {
	log     Logger
	started time.Time
}

// NewOperationLogger starts timing operation; a nil log uses the global one
func NewOperationLogger(operation string, log Logger) *OperationLogger {
	if log == nil {
		log = GetGlobalLogger()
	}
	ol := &OperationLogger{
		log:     log.WithField("operation", operation),
		started: time.Now(),
	}
	ol.log.Debug("Starting operation")
	return ol
}

// WithField attaches key to every later line of the operation
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.log = ol.log.WithField(key, value)
	return ol
}

func (ol *OperationLogger) finish(status string) Logger {
	return ol.log.WithFields(Fields{
		"duration": time.Since(ol.started).String(),
		"status":   status,
	})
}

func (ol *OperationLogger) Step(step string) {
	ol.log.WithField("step", step).Info("Operation step")
}

func (ol *OperationLogger) Success(message string) {
	ol.finish("success").Info(message)
}

func (ol *OperationLogger) Error(err error, message string) {
	ol.finish("error").WithError(err).Error(message)
}

func (ol *OperationLogger) Warning(message string) {
	ol.log.Warn(message)
}

// TimedOperation runs fn as a named operation and logs how it ended
func TimedOperation(operation string, log Logger, fn func() error) error {
	ol := NewOperationLogger(operation, log)
	if err := fn(); err != nil {
		ol.Error(err, "Operation failed")
		return err
	}
	ol.Success("Operation completed")
	return nil
}
