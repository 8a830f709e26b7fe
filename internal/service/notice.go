package service

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/observability"
)

// Notice is a short user-facing message raised when the refresh flow cannot
// continue.
type Notice string

const (
	NoticeLocationOff Notice = "Your location provider is turned off. Please turn it on."
	NoticeNoNetwork   Notice = "No internet connection available"
)

// Code is the stable machine-readable name of n.
func (n Notice) Code() string {
	switch n {
	case NoticeLocationOff:
		return "LOCATION_OFF"
	case NoticeNoNetwork:
		return "NO_NETWORK"
	default:
		return "NOTICE"
	}
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// LogNotifier records notices in the structured log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(n Notice) {
	observability.NoticesTotal.WithLabelValues(n.Code()).Inc()
	if l.Logger == nil {
		return
	}
	l.Logger.Info("notice", zap.String("code", n.Code()), zap.String("message", string(n)))
}

// WriterNotifier prints notices as single lines, e.g. to stderr.
type WriterNotifier struct {
	mu sync.Mutex
	W  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{W: w}
}

func (w *WriterNotifier) Notify(n Notice) {
	observability.NoticesTotal.WithLabelValues(n.Code()).Inc()
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.W, string(n))
}
