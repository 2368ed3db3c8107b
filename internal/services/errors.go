package services

import (
	"errors"
	"net/http"

	"github.com/govairn/govairn-backend/internal/platform/apierr"
)

var (
	ErrNoActivePersona     = apierr.New(http.StatusNotFound, "no_active_persona", errors.New("no active persona found"))
	ErrPersonaNotFound     = apierr.New(http.StatusNotFound, "persona_not_found", errors.New("persona not found"))
	ErrProposalNotFound    = apierr.New(http.StatusNotFound, "proposal_not_found", errors.New("proposal not found"))
	ErrAlreadyVoted        = apierr.New(http.StatusConflict, "already_voted", errors.New("a vote for this proposal was already cast"))
	ErrProposalClosed      = apierr.New(http.StatusConflict, "proposal_not_active", errors.New("proposal is not open for voting"))
	ErrInvalidChoice       = apierr.New(http.StatusBadRequest, "invalid_choice", errors.New("choice must be one of for, against, abstain"))
	ErrMissingWallet       = apierr.New(http.StatusBadRequest, "missing_wallet", errors.New("a valid wallet address is required"))
	ErrMissingUser         = apierr.New(http.StatusUnauthorized, "missing_user", errors.New("an authenticated user is required"))
	ErrUnknownPreset       = apierr.New(http.StatusNotFound, "unknown_preset", errors.New("unknown persona preset"))
	ErrQueueEntryNotFound  = apierr.New(http.StatusNotFound, "queue_entry_not_found", errors.New("queue entry not found"))
	ErrQueueEntryNotFailed = apierr.New(http.StatusConflict, "queue_entry_not_failed", errors.New("only failed queue entries can be retried"))
)
