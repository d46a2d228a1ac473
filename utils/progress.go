package utils

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap/zapcore"

	"banks-etl/models"
)

// ProgressLog appends "<timestamp> : <message>" lines to a file.
// The file is opened per call, in append mode, and created if absent.
type ProgressLog struct {
	path string
	enc  zapcore.Encoder
	now  func() time.Time
}

// NewProgressLog returns a ProgressLog writing to path.
func NewProgressLog(path string) *ProgressLog {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		ConsoleSeparator: " : ",
		LineEnding:       "\n",
	})
	return &ProgressLog{path: path, enc: enc, now: time.Now}
}

// Path returns the log file location.
func (p *ProgressLog) Path() string { return p.path }

// Log writes one line. Any failure is an ErrIO.
func (p *ProgressLog) Log(message string) error {
	buf, err := p.enc.EncodeEntry(zapcore.Entry{Time: p.now(), Message: message}, nil)
	if err != nil {
		return models.Classify(models.ErrIO, eris.Wrap(err, "progress: encode entry"))
	}
	defer buf.Free()

	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return models.Classify(models.ErrIO, eris.Wrap(err, "progress: create log dir"))
		}
	}

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return models.Classify(models.ErrIO, eris.Wrapf(err, "progress: open %s", p.path))
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return models.Classify(models.ErrIO, eris.Wrapf(err, "progress: write %s", p.path))
	}
	if err := f.Close(); err != nil {
		return models.Classify(models.ErrIO, eris.Wrapf(err, "progress: close %s", p.path))
	}
	return nil
}
