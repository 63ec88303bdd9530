package escrow

import (
	"github.com/sol1corejz/workwise/internal/models"
)

type Action string

const (
	ActionAcceptBid       Action = "accept bid on"
	ActionComplete        Action = "complete"
	ActionApprove         Action = "approve"
	ActionRequestRevision Action = "request revision on"
	ActionDispute         Action = "dispute"
	ActionResolveRelease  Action = "resolve with release"
	ActionResolveRefund   Action = "resolve with refund"
	ActionCancel          Action = "cancel"
)

type transition struct {
	from []models.ProjectStatus
	to   models.ProjectStatus
}

var transitions = map[Action]transition{
	ActionAcceptBid:       {from: []models.ProjectStatus{models.ProjectOpen}, to: models.ProjectInProgress},
	ActionComplete:        {from: []models.ProjectStatus{models.ProjectInProgress}, to: models.ProjectCompleted},
	ActionApprove:         {from: []models.ProjectStatus{models.ProjectCompleted}, to: models.ProjectApproved},
	ActionRequestRevision: {from: []models.ProjectStatus{models.ProjectCompleted}, to: models.ProjectInProgress},
	ActionDispute:         {from: []models.ProjectStatus{models.ProjectCompleted}, to: models.ProjectDisputed},
	ActionResolveRelease:  {from: []models.ProjectStatus{models.ProjectDisputed}, to: models.ProjectApproved},
	ActionResolveRefund:   {from: []models.ProjectStatus{models.ProjectDisputed}, to: models.ProjectCancelled},
	ActionCancel: {
		from: []models.ProjectStatus{models.ProjectOpen, models.ProjectInProgress, models.ProjectCompleted, models.ProjectDisputed},
		to:   models.ProjectCancelled,
	},
}

// Next returns the status action leads to from the given status, or a
// *models.TransitionError when the table has no such edge.
func Next(action Action, from models.ProjectStatus) (models.ProjectStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", &models.TransitionError{Action: string(action), From: from}
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", &models.TransitionError{Action: string(action), From: from}
}
