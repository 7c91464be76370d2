// Package identity decides how each calendar is authenticated.
//
// A calendar is Delegated when some participant who owns it holds a usable
// OAuth token, and Shared otherwise. The decision is made from the store on
// every call and never cached, so a participant connecting or revoking
// access takes effect on the next operation.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/teemow/meetsync/internal/google"
	"github.com/teemow/meetsync/internal/logging"
	"github.com/teemow/meetsync/internal/model"
	"github.com/teemow/meetsync/internal/store"
)

const groupCalendarSuffix = "@group.calendar.google.com"

var personalAddress = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// LooksPersonal reports whether calendarID has the shape of a person's
// primary calendar address rather than a group calendar.
func LooksPersonal(calendarID string) bool {
	return personalAddress.MatchString(calendarID) && !strings.HasSuffix(calendarID, groupCalendarSuffix)
}

// Resolver maps calendar IDs to identities.
type Resolver struct {
	participants store.ParticipantRepository
	tokens       google.TokenProvider
	logger       *slog.Logger
}

// NewResolver creates a Resolver. A nil tokens provider makes every calendar Shared.
func NewResolver(participants store.ParticipantRepository, tokens google.TokenProvider, logger *slog.Logger) *Resolver {
	return &Resolver{
		participants: participants,
		tokens:       tokens,
		logger:       logging.OrDefault(logger),
	}
}

// Resolve returns the identity to use for calendarID. Store failures are
// returned; callers treat them as that side failing.
func (r *Resolver) Resolve(ctx context.Context, calendarID string) (model.CalendarIdentity, error) {
	if calendarID == "" {
		return model.CalendarIdentity{}, fmt.Errorf("calendar ID cannot be empty")
	}

	candidates, err := r.participants.FindByCalendarID(ctx, calendarID)
	if err != nil {
		return model.CalendarIdentity{}, fmt.Errorf("failed to look up calendar owners: %w", err)
	}

	anyStored := false
	for _, p := range candidates {
		if r.tokens == nil {
			break
		}
		tok, err := r.tokens.GetTokenForAccount(ctx, p.ID)
		switch {
		case errors.Is(err, google.ErrNoToken):
			continue
		case err != nil:
			r.logger.Warn("failed to read delegated token",
				logging.Participant(p.ID),
				logging.Calendar(calendarID),
				logging.Err(err))
			continue
		}
		anyStored = true
		if google.Usable(tok) {
			return model.CalendarIdentity{
				CalendarID:    calendarID,
				Mode:          model.ModeDelegated,
				ParticipantID: p.ID,
			}, nil
		}
	}

	if !anyStored && LooksPersonal(calendarID) {
		// Only a hint: a personal-looking calendar may still be shared with the service account.
		r.logger.Debug("personal calendar has no delegated credential, using shared identity",
			logging.Calendar(calendarID),
			slog.Int("candidates", len(candidates)))
	}

	return model.CalendarIdentity{CalendarID: calendarID, Mode: model.ModeShared}, nil
}
