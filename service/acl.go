package service

import (
	"github.com/ethereum/go-ethereum/common"

	"survey-ledger/models"
)

// AccessControlList tracks which identities may request decryption of
// the tallies. Queued entries wait for finalization; granted entries
// hold the permission. Finalization ordering is the caller's
// responsibility: SurveyService checks the lifecycle before mutating.
type AccessControlList struct {
	entries map[common.Address]*models.ViewerEntry
	queued  []common.Address
}

// NewAccessControlList creates an ACL with the admin pre-granted.
func NewAccessControlList(admin common.Address) *AccessControlList {
	acl := &AccessControlList{
		entries: make(map[common.Address]*models.ViewerEntry),
	}
	acl.entries[admin] = &models.ViewerEntry{Granted: true}
	return acl
}

// RestoreAccessControlList rebuilds an ACL from persisted viewer sets.
func RestoreAccessControlList(queued, granted []common.Address) *AccessControlList {
	acl := &AccessControlList{
		entries: make(map[common.Address]*models.ViewerEntry),
	}
	for _, viewer := range granted {
		acl.entry(viewer).Granted = true
	}
	for _, viewer := range queued {
		entry := acl.entry(viewer)
		if !entry.Queued {
			entry.Queued = true
			acl.queued = append(acl.queued, viewer)
		}
	}
	return acl
}

func (acl *AccessControlList) entry(viewer common.Address) *models.ViewerEntry {
	e, ok := acl.entries[viewer]
	if !ok {
		e = &models.ViewerEntry{}
		acl.entries[viewer] = e
	}
	return e
}

// Queue marks a viewer for automatic promotion at finalization.
// Idempotent: re-queuing an already queued viewer reports no change.
func (acl *AccessControlList) Queue(viewer common.Address) (bool, error) {
	if models.IsZeroAddress(viewer) {
		return false, models.ErrInvalidViewer
	}
	if e, ok := acl.entries[viewer]; ok && e.Granted {
		return false, models.ErrAlreadyAuthorized
	}

	entry := acl.entry(viewer)
	if entry.Queued {
		return false, nil
	}
	entry.Queued = true
	acl.queued = append(acl.queued, viewer)
	return true, nil
}

// RemoveQueued clears a pending viewer before finalization.
func (acl *AccessControlList) RemoveQueued(viewer common.Address) error {
	entry, ok := acl.entries[viewer]
	if !ok || !entry.Queued {
		return models.ErrNotQueued
	}

	entry.Queued = false
	for i, queued := range acl.queued {
		if queued == viewer {
			acl.queued = append(acl.queued[:i], acl.queued[i+1:]...)
			break
		}
	}
	return nil
}

// Grant gives a viewer decryption permission directly.
func (acl *AccessControlList) Grant(viewer common.Address) error {
	if models.IsZeroAddress(viewer) {
		return models.ErrInvalidViewer
	}
	if e, ok := acl.entries[viewer]; ok && e.Granted {
		return models.ErrAlreadyAuthorized
	}

	acl.entry(viewer).Granted = true
	return nil
}

// PromoteQueued grants every currently queued viewer and clears the
// queue. Returns the promoted identities in queue order. Called exactly
// once, at the instant of finalization.
func (acl *AccessControlList) PromoteQueued() []common.Address {
	promoted := make([]common.Address, 0, len(acl.queued))
	for _, viewer := range acl.queued {
		entry := acl.entries[viewer]
		entry.Queued = false
		if !entry.Granted {
			entry.Granted = true
			promoted = append(promoted, viewer)
		}
	}
	acl.queued = acl.queued[:0]
	return promoted
}

// CanView is a pure lookup of the granted flag.
func (acl *AccessControlList) CanView(viewer common.Address) bool {
	entry, ok := acl.entries[viewer]
	return ok && entry.Granted
}

// IsQueued is a pure lookup of the queued flag.
func (acl *AccessControlList) IsQueued(viewer common.Address) bool {
	entry, ok := acl.entries[viewer]
	return ok && entry.Queued
}

// QueuedViewers returns the pending viewers in queue order.
func (acl *AccessControlList) QueuedViewers() []common.Address {
	queued := make([]common.Address, len(acl.queued))
	copy(queued, acl.queued)
	return queued
}

// GrantedViewers returns every identity holding view permission.
func (acl *AccessControlList) GrantedViewers() []common.Address {
	granted := make([]common.Address, 0)
	for viewer, entry := range acl.entries {
		if entry.Granted {
			granted = append(granted, viewer)
		}
	}
	return granted
}
