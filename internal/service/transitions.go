package service

import (
	"time"

	"github.com/nurpe/contracts-service/internal/model"
)

type transitionKey struct {
	from model.ContractStatus
	to   model.ContractStatus
}

// contractTransitions maps each legal (current, requested) status pair to the
// role that owns the transition. Anything absent from the table is denied,
// including skips (PENDING -> COMPLETED) and moves out of terminal states.
// DISPUTED is handled separately: any non-terminal status may be disputed by
// either party.
var contractTransitions = map[transitionKey]model.Role{
	{model.ContractStatusPending, model.ContractStatusAccepted}:     model.RoleProvider,
	{model.ContractStatusAccepted, model.ContractStatusInProgress}:  model.RoleProvider,
	{model.ContractStatusInProgress, model.ContractStatusCompleted}: model.RoleProvider,

	{model.ContractStatusPending, model.ContractStatusCancelledByBuyer}:    model.RoleBuyer,
	{model.ContractStatusAccepted, model.ContractStatusCancelledByBuyer}:   model.RoleBuyer,
	{model.ContractStatusInProgress, model.ContractStatusCancelledByBuyer}: model.RoleBuyer,

	{model.ContractStatusPending, model.ContractStatusCancelledByProvider}:    model.RoleProvider,
	{model.ContractStatusAccepted, model.ContractStatusCancelledByProvider}:   model.RoleProvider,
	{model.ContractStatusInProgress, model.ContractStatusCancelledByProvider}: model.RoleProvider,
}

func allowedTransition(from, to model.ContractStatus, role model.Role) bool {
	if role != model.RoleBuyer && role != model.RoleProvider {
		return false
	}
	if to == model.ContractStatusDisputed {
		return !from.Terminal()
	}
	required, ok := contractTransitions[transitionKey{from: from, to: to}]
	return ok && required == role
}

// applyTransition sets the new status and its timestamp side effects.
// Entering IN_PROGRESS records the service start only once; retries must not
// move an already-set start time. Entering COMPLETED always stamps the end.
func applyTransition(c *model.Contract, to model.ContractStatus, now time.Time) {
	c.Status = to
	switch to {
	case model.ContractStatusInProgress:
		if c.ServiceStartedAt == nil {
			started := now
			c.ServiceStartedAt = &started
		}
	case model.ContractStatusCompleted:
		ended := now
		c.ServiceEndedAt = &ended
	}
}
