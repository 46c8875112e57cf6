package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Signal is one optional input to the device fingerprint. Read reports
// false when the host cannot provide the value.
type Signal struct {
	Name string
	Read func() (string, bool)
}

// DefaultSignals returns the fingerprint inputs in hashing order
func DefaultSignals() []Signal {
	return []Signal{
		{Name: "cpu", Read: cpuSignal},
		{Name: "disk", Read: diskSignal},
		{Name: "host", Read: envSignal("COMPUTERNAME", "HOSTNAME")},
		{Name: "user", Read: envSignal("USERNAME", "USER")},
	}
}

// Compute folds the present signals into a SHA-256 digest, left to right
// with no separator, and names a UUIDv5 in the OID namespace after the
// lowercase hex digest.
func Compute(signals []Signal) string {
	id, _ := compute(signals)
	return id
}

func compute(signals []Signal) (string, []string) {
	h := sha256.New()
	present := make([]string, 0, len(signals))
	for _, s := range signals {
		v, ok := s.Read()
		if !ok {
			continue
		}
		h.Write([]byte(v))
		present = append(present, s.Name)
	}

	digest := hex.EncodeToString(h.Sum(nil))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(digest)).String(), present
}

// FingerprintManager computes the device id once and serves the cached value
// afterwards. The inputs do not change while the process runs.
type FingerprintManager struct {
	signals []Signal
	logger  *slog.Logger

	once     sync.Once
	deviceID string
	present  []string
}

// NewFingerprintManager creates a manager over the default host signals
func NewFingerprintManager(logger *slog.Logger) *FingerprintManager {
	return NewFingerprintManagerWithSignals(DefaultSignals(), logger)
}

// NewFingerprintManagerWithSignals creates a manager over a custom signal set
func NewFingerprintManagerWithSignals(signals []Signal, logger *slog.Logger) *FingerprintManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &FingerprintManager{
		signals: signals,
		logger:  logger.With(slog.String("component", "fingerprint")),
	}
}

// DeviceID returns the canonical device id of this machine
func (fm *FingerprintManager) DeviceID() string {
	fm.once.Do(func() {
		fm.deviceID, fm.present = compute(fm.signals)
		if len(fm.present) == 0 {
			fm.logger.Debug("no fingerprint signals available, using empty digest")
		}
		fm.logger.Debug("device fingerprint computed",
			slog.String("device_id", fm.deviceID),
			slog.Any("signals", fm.present),
		)
	})
	return fm.deviceID
}

// Signals returns the names of the signals that contributed to the id
func (fm *FingerprintManager) Signals() []string {
	fm.DeviceID()
	out := make([]string, len(fm.present))
	copy(out, fm.present)
	return out
}

func envSignal(primary, fallback string) func() (string, bool) {
	return func() (string, bool) {
		if v, ok := os.LookupEnv(primary); ok {
			return v, true
		}
		return os.LookupEnv(fallback)
	}
}
