package halyard

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

type ActionLogger interface {
	Step(step string) SubLogger
}

type SubLogger interface {
	Log(msg string)
	Logf(msg string, a ...any)
	Err(msg string)
	Errf(msg string, a ...any)
	Progress(p int) SubLogger
}

type actionLogger struct {
	OpID  string
	Op    string
	entry *logrus.Entry
	Steps map[string]*stepLogger
}

// NewActionLogger reports the steps of one backup operation through logger.
// A nil logger falls back to the logrus standard logger.
func NewActionLogger(op string, opID string, logger *logrus.Logger) *actionLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	l := actionLogger{
		OpID:  opID,
		Op:    op,
		entry: logger.WithFields(logrus.Fields{"op": op, "opID": opID}),
		Steps: map[string]*stepLogger{},
	}
	return &l
}

func (t *actionLogger) Step(step string) SubLogger {
	return t.step(step)
}

func (t *actionLogger) step(step string) *stepLogger {
	s, ok := t.Steps[step]
	if !ok {
		t.Steps[step] = &stepLogger{t, step, 0, time.Now()}
		s = t.Steps[step]
	}
	return s
}

type stepLogger struct {
	l        *actionLogger
	step     string
	progress int
	start    time.Time
}

func (t *stepLogger) log(msg string, err bool) {
	entry := t.l.entry.WithFields(logrus.Fields{
		"step":     t.step,
		"progress": t.progress,
		"elapsed":  time.Since(t.start).Round(time.Millisecond).String(),
	})
	if err {
		entry.Error(msg)
		return
	}
	entry.Info(msg)
}

func (t *stepLogger) Progress(p int) SubLogger {
	t.progress = p
	return t
}

func (t *stepLogger) Log(msg string) {
	t.log(msg, false)
}

func (t *stepLogger) Logf(msg string, a ...any) {
	t.log(fmt.Sprintf(msg, a...), false)
}

func (t *stepLogger) Err(msg string) {
	t.log(msg, true)
}

func (t *stepLogger) Errf(msg string, a ...any) {
	t.log(fmt.Sprintf(msg, a...), true)
}
