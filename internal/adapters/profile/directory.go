// Package profile provides sender tone profiles for reply drafting.
package profile

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-support-triage/internal/core"
)

// Directory is a fixed address-to-profile table
type Directory struct {
	profiles map[string]core.SenderProfile
}

// NewDirectory builds a directory. Addresses are matched case-insensitively
// and blank profile fields take the default value.
func NewDirectory(profiles map[string]core.SenderProfile, logger *zap.Logger) *Directory {
	d := &Directory{profiles: make(map[string]core.SenderProfile, len(profiles))}
	for addr, p := range profiles {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			continue
		}
		if p.Tone == "" {
			p.Tone = core.DefaultSenderProfile.Tone
		}
		if p.UrgencyBias == "" {
			p.UrgencyBias = core.DefaultSenderProfile.UrgencyBias
		}
		d.profiles[addr] = p
	}

	if len(d.profiles) > 0 && logger != nil {
		logger.Info("Loaded sender profiles", zap.Int("count", len(d.profiles)))
	}
	return d
}

// Profile returns the sender's profile or the default one
func (d *Directory) Profile(sender string) core.SenderProfile {
	if p, ok := d.profiles[strings.ToLower(sender)]; ok {
		return p
	}
	return core.DefaultSenderProfile
}
