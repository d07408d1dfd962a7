package booking

import (
	"context"
	"fmt"

	"github.com/meinhoongagan/referencias-locales/models"
	"gorm.io/gorm"
)

// StatusUpdate carries the optional fields of a status change. Nil fields are
// left as they are.
type StatusUpdate struct {
	Status        *models.BookingStatus
	ConfirmedDate *string
	ConfirmedTime *string
	Notes         *string
}

// UpdateStatus applies upd to the request on behalf of actingUserID.
//
// Errors: ErrNotFound, ErrForbidden when the actor is neither requester nor
// provider owner (checked before the status value is looked at),
// ErrInvalidStatus for unknown values, ErrInvalidTransition for moves the
// transition table does not allow, ErrConflict when another writer changed
// the status first.
func (m *Manager) UpdateStatus(ctx context.Context, requestID, actingUserID uint, upd StatusUpdate) (*models.ServiceRequest, error) {
	var out *models.ServiceRequest
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sr, err := m.load(tx, requestID)
		if err != nil {
			return err
		}
		if err := Authorize(sr, actingUserID); err != nil {
			return err
		}

		current := sr.Status
		next := current
		if upd.Status != nil {
			next = *upd.Status
			if !next.Valid() {
				return ErrInvalidStatus
			}
			if !current.CanTransition(next) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
			}
		}

		changes := map[string]interface{}{"status": next}
		if upd.ConfirmedDate != nil {
			changes["confirmed_date"] = *upd.ConfirmedDate
			sr.ConfirmedDate = *upd.ConfirmedDate
		}
		if upd.ConfirmedTime != nil {
			changes["confirmed_time"] = *upd.ConfirmedTime
			sr.ConfirmedTime = *upd.ConfirmedTime
		}
		if upd.Notes != nil {
			changes["notes"] = *upd.Notes
			sr.Notes = *upd.Notes
		}

		// Guarding on the loaded status turns a concurrent transition into a
		// conflict instead of a lost update.
		res := tx.Model(&models.ServiceRequest{}).
			Where("id = ? AND status = ?", sr.ID, current).
			Updates(changes)
		if res.Error != nil {
			return fmt.Errorf("update service request %d: %w", sr.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		sr.Status = next
		out = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
