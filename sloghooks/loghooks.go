// Package sloghooks turns netbound hook events into slog lines, with sampling
// for the chatty ones and redaction of storage keys.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/netbound"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery   uint64
	SupersededEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr   atomic.Uint64
	supersededCtr atomic.Uint64
}

var _ netbound.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Superseded(slot, oldID, newID string) {
	if h.l == nil || !sample(h.opts.SupersededEvery, &h.supersededCtr) {
		return
	}
	h.l.Debug("netbound.superseded", "slot", slot, "old", oldID, "new", newID)
}

func (h *Hooks) Cancelled(slot, id string) {
	if h.l == nil {
		return
	}
	h.l.Debug("netbound.cancelled", "slot", slot, "invocation", id)
}

func (h *Hooks) DomainError(slot, msg string) {
	if h.l == nil {
		return
	}
	h.l.Info("netbound.domain_error", "slot", slot, "msg", msg)
}

func (h *Hooks) TransportError(slot, msg string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("netbound.transport_error", "slot", slot, "msg", msg, "err", err)
}

func (h *Hooks) CacheReadError(slot string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("netbound.cache_read_error", "slot", slot, "err", err)
}

func (h *Hooks) CacheWriteError(slot string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("netbound.cache_write_error", "slot", slot, "err", err)
}

func (h *Hooks) SelfHealSingle(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("netbound.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("netbound.provider_set_rejected", "key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("netbound.gen_snapshot_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) GenBumpError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("netbound.gen_bump_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) InvalidateOutage(key string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("netbound.invalidate_outage",
		"key", h.redact(key),
		"bump_err", bumpErr,
		"del_err", delErr)
}
