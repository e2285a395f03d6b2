package device

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/cjeanneret/CamGo/internal/bridge"
	"github.com/cjeanneret/CamGo/internal/debug"
)

// Identity describes the device the app runs on, as reported by the host.
type Identity struct {
	PlatformID   string `json:"platform_id" yaml:"platform_id"` // host runtime version
	Model        string `json:"model" yaml:"model"`
	PlatformName string `json:"platform_name" yaml:"platform_name"`
	InstanceID   string `json:"instance_id" yaml:"instance_id"`
	OSVersion    string `json:"os_version" yaml:"os_version"`
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	IsEmulated   bool   `json:"is_emulated" yaml:"is_emulated"`
	SerialNumber string `json:"serial_number" yaml:"serial_number"`
}

// Provider is the native device-info capability. It answers synchronously;
// a nil identity with a nil error means the host has no record.
type Provider interface {
	Device() (*Identity, error)
}

// Service resolves the device identity through the capability handle.
type Service struct {
	handle *bridge.Handle[Provider]
	group  singleflight.Group
}

// NewService creates a device service over h.
func NewService(h *bridge.Handle[Provider]) *Service {
	return &Service{handle: h}
}

// Identity looks the device up. Concurrent lookups share one native call.
func (s *Service) Identity(ctx context.Context) *bridge.Future[*Identity] {
	return bridge.Request(ctx, "device", s.handle, func(p Provider, onSuccess func(*Identity), onError func(string)) {
		v, err, shared := s.group.Do("identity", func() (interface{}, error) {
			return p.Device()
		})
		if err != nil {
			onError(err.Error())
			return
		}
		if shared {
			debug.Trace("Device: identity lookup shared")
		}
		id, _ := v.(*Identity)
		onSuccess(id)
	})
}

// String renders the identity for logs.
func (i *Identity) String() string {
	if i == nil {
		return "<no device>"
	}
	emulated := ""
	if i.IsEmulated {
		emulated = " (emulated)"
	}
	return fmt.Sprintf("%s %s %s %s [%s]%s", i.Manufacturer, i.Model, i.PlatformName, i.OSVersion, i.InstanceID, emulated)
}

// Static is a Provider returning a fixed record, possibly nil.
type Static struct {
	Identity *Identity
}

func (s Static) Device() (*Identity, error) {
	return s.Identity, nil
}
