package device

import (
	"os"
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// Simulated reports the machine the process runs on, flagged as emulated.
// The instance id is derived from the hostname so it is stable across runs.
type Simulated struct {
	once sync.Once
	id   *Identity
}

// NewSimulated creates a host-backed device provider.
func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Device() (*Identity, error) {
	s.once.Do(func() {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "localhost"
		}
		s.id = &Identity{
			PlatformID:   runtime.Version(),
			Model:        runtime.GOARCH,
			PlatformName: runtime.GOOS,
			InstanceID:   uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host)).String(),
			OSVersion:    runtime.GOOS + "/" + runtime.GOARCH,
			Manufacturer: "CamGo",
			IsEmulated:   true,
			SerialNumber: host,
		}
	})
	cp := *s.id
	return &cp, nil
}
