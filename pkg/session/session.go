// Copyright 2026 Benjamin Toso <benjamin.toso@gmail.com>
// Licensed under the Apache License, Version 2.0

// Package session implements the role/mode/permission state machine
// that governs every action taken against an open archive, and the
// subprocess guest protocol used to dispatch those actions to a host-app
// executable.
package session

import "fmt"

// Mode is the session's execution mode.
type Mode string

const (
	ModeWidget   Mode = "widget"
	ModeHeadless Mode = "headless"
)

// Role is the session's caller role.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleOwner    Role = "owner"
)

// Action names one of the guest protocol's request kinds.
type Action string

const (
	ActionReadPayload   Action = "ReadPayload"
	ActionReadContext   Action = "ReadContext"
	ActionWritePayload  Action = "WritePayload"
	ActionWriteContext  Action = "WriteContext"
	ActionExecuteWasm   Action = "ExecuteWasm"
	ActionUpdatePayload Action = "UpdatePayload"
)

// WidgetBounds is the on-screen rectangle a widget-mode session occupies.
type WidgetBounds struct {
	X, Y, W, H int
}

// Permissions is a session's mutable capability set: which actions are
// granted, and which hosts/env vars the session itself is willing to
// expose (still bounded by the manifest's own allowlists).
type Permissions struct {
	ReadPayload  bool
	WritePayload bool
	ReadContext  bool
	WriteContext bool
	ExecuteWasm  bool
	AllowHosts   []string
	AllowEnv     []string
}

// ManifestPermissions is the immutable snapshot of a manifest's declared
// allowlists, captured once at session construction.
type ManifestPermissions struct {
	AllowHosts []string
	AllowEnv   []string
}

// EffectivePermissions is the intersection of a session's grants with the
// manifest's allowlists — the manifest is always the upper bound.
type EffectivePermissions struct {
	Hosts []string
	Env   []string
}

// Session is a per-interaction, clonable value object bound to a single
// archive. It carries no persistent state across interactions.
type Session struct {
	archivePath   string
	mode          Mode
	role          Role
	perms         Permissions
	manifestPerms ManifestPermissions
	hostApp       string
	cpuLimitMs    *int
	memoryLimitMb *int
	widgetBounds  *WidgetBounds
}

// New constructs a session over archivePath with the default posture:
// mode=widget, role=consumer, read-only payload/context access, and the
// manifest's permission snapshot captured for the session's lifetime.
func New(archivePath string, manifestPerms ManifestPermissions) *Session {
	return &Session{
		archivePath: archivePath,
		mode:        ModeWidget,
		role:        RoleConsumer,
		perms: Permissions{
			ReadPayload: true,
			ReadContext: true,
		},
		manifestPerms: manifestPerms,
	}
}

// Clone returns an independent deep copy of the session.
func (s *Session) Clone() *Session {
	clone := *s
	clone.perms.AllowHosts = append([]string(nil), s.perms.AllowHosts...)
	clone.perms.AllowEnv = append([]string(nil), s.perms.AllowEnv...)
	if s.cpuLimitMs != nil {
		v := *s.cpuLimitMs
		clone.cpuLimitMs = &v
	}
	if s.memoryLimitMb != nil {
		v := *s.memoryLimitMb
		clone.memoryLimitMb = &v
	}
	if s.widgetBounds != nil {
		v := *s.widgetBounds
		clone.widgetBounds = &v
	}
	return &clone
}

func (s *Session) ArchivePath() string       { return s.archivePath }
func (s *Session) Mode() Mode                { return s.mode }
func (s *Session) Role() Role                { return s.role }
func (s *Session) HostApp() string           { return s.hostApp }
func (s *Session) WidgetBounds() *WidgetBounds { return s.widgetBounds }

// SetHostApp names the executable invoked for subprocess dispatch.
func (s *Session) SetHostApp(hostApp string) { s.hostApp = hostApp }

// AsWidget switches to widget mode with the given host-app identifier.
func (s *Session) AsWidget(host string) {
	s.mode = ModeWidget
	s.hostApp = host
}

// AsHeadless switches to headless mode with the given host-app identifier.
func (s *Session) AsHeadless(host string) {
	s.mode = ModeHeadless
	s.hostApp = host
}

// AsConsumer switches to the consumer role.
func (s *Session) AsConsumer() { s.role = RoleConsumer }

// AsOwner switches to the owner role.
func (s *Session) AsOwner() { s.role = RoleOwner }

func (s *Session) GrantReadPayload()    { s.perms.ReadPayload = true }
func (s *Session) RevokeReadPayload()   { s.perms.ReadPayload = false }
func (s *Session) GrantWritePayload()   { s.perms.WritePayload = true }
func (s *Session) RevokeWritePayload()  { s.perms.WritePayload = false }
func (s *Session) GrantReadContext()    { s.perms.ReadContext = true }
func (s *Session) RevokeReadContext()   { s.perms.ReadContext = false }
func (s *Session) GrantWriteContext()   { s.perms.WriteContext = true }
func (s *Session) RevokeWriteContext()  { s.perms.WriteContext = false }
func (s *Session) GrantExecuteWasm()    { s.perms.ExecuteWasm = true }
func (s *Session) RevokeExecuteWasm()   { s.perms.ExecuteWasm = false }

// AllowHost idempotently adds host to the session's own host allowlist.
func (s *Session) AllowHost(host string) {
	if !contains(s.perms.AllowHosts, host) {
		s.perms.AllowHosts = append(s.perms.AllowHosts, host)
	}
}

// AllowEnvVar idempotently adds name to the session's own env allowlist.
func (s *Session) AllowEnvVar(name string) {
	if !contains(s.perms.AllowEnv, name) {
		s.perms.AllowEnv = append(s.perms.AllowEnv, name)
	}
}

// SetCPULimitMs configures an optional CPU time limit for guest dispatch.
func (s *Session) SetCPULimitMs(ms int) { s.cpuLimitMs = &ms }

// SetMemoryLimitMB configures an optional memory limit for guest dispatch.
func (s *Session) SetMemoryLimitMB(mb int) { s.memoryLimitMb = &mb }

// SetWidgetBounds configures the widget's on-screen rectangle. Zero width
// or height is rejected per the widget-bounds invariant.
func (s *Session) SetWidgetBounds(x, y, w, h int) error {
	if w == 0 || h == 0 {
		return fmt.Errorf("session: widget bounds width and height must be non-zero, got %dx%d", w, h)
	}
	s.widgetBounds = &WidgetBounds{X: x, Y: y, W: w, H: h}
	return nil
}

// EffectivePermissions intersects the session's own allowlists with the
// manifest's: a name is effective only if present in both.
func (s *Session) EffectivePermissions() EffectivePermissions {
	return EffectivePermissions{
		Hosts: intersect(s.perms.AllowHosts, s.manifestPerms.AllowHosts),
		Env:   intersect(s.perms.AllowEnv, s.manifestPerms.AllowEnv),
	}
}

// Authorize enforces the role/action table before any I/O: consumers
// may only ReadPayload/ReadContext, and only when granted; owners may
// perform any action, but only when granted.
func (s *Session) Authorize(action Action) bool {
	if s.role == RoleConsumer {
		switch action {
		case ActionReadPayload:
			return s.perms.ReadPayload
		case ActionReadContext:
			return s.perms.ReadContext
		default:
			return false
		}
	}
	switch action {
	case ActionReadPayload:
		return s.perms.ReadPayload
	case ActionReadContext:
		return s.perms.ReadContext
	case ActionWritePayload, ActionUpdatePayload:
		return s.perms.WritePayload
	case ActionWriteContext:
		return s.perms.WriteContext
	case ActionExecuteWasm:
		return s.perms.ExecuteWasm
	default:
		return false
	}
}

// ValidateModeBounds enforces that widget mode always carries bounds and
// headless mode never does, rejected before any dispatch is attempted.
func (s *Session) ValidateModeBounds() error {
	switch s.mode {
	case ModeWidget:
		if s.widgetBounds == nil {
			return fmt.Errorf("session: widget mode requires widget bounds")
		}
	case ModeHeadless:
		if s.widgetBounds != nil {
			return fmt.Errorf("session: headless mode must not carry widget bounds")
		}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// intersect returns the elements of a that also appear in b, preserving
// a's order. Either side being empty yields an empty result.
func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return []string{}
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, v := range a {
		if _, ok := inB[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
