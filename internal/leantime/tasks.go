package leantime

import (
	"context"
	"encoding/json"

	"github.com/leanmobile/leanbridge/internal/normalize"
	"github.com/leanmobile/leanbridge/internal/rpc"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// MyTasks fetches the caller's task list. No single method works across
// all upstream versions, so candidates go broadest-signal first and an
// empty result rotates to the next candidate — some versions answer the
// wrong scope with an empty set instead of an error. The chain is built
// fresh per call: which variant answers depends on the caller's
// credentials, so nothing is latched.
func (s *Service) MyTasks(ctx context.Context, src upstream.CredentialSource) ([]Task, error) {
	nonEmpty := func(raw json.RawMessage) bool { return !normalize.IsEmptySequence(raw) }
	candidates := []rpc.Candidate{
		{
			Method: "leantime.rpc.tickets.getAll",
			Params: map[string]any{"searchCriteria": map[string]any{"userId": "current", "currentProject": ""}},
			Accept: nonEmpty,
		},
		{
			Method: "leantime.rpc.tickets.getMyTickets",
			Params: map[string]any{},
			Accept: nonEmpty,
		},
		{
			Method: "leantime.rpc.tickets.getAll",
			Params: map[string]any{"searchCriteria": map[string]any{"currentProject": ""}},
			Accept: nonEmpty,
		},
		{
			Method: "leantime.rpc.tickets.getAllBySearchCriteria",
			Params: map[string]any{"searchCriteria": map[string]any{}},
			Accept: nonEmpty,
		},
		{
			Method: "leantime.rpc.tickets.getAll",
			Params: map[string]any{},
		},
	}
	raw, err := s.chain.Run(ctx, src, "tasks.my", candidates)
	if err != nil {
		return nil, err
	}
	return decodeTasks(raw), nil
}

// ProjectTasks fetches one project's tasks. The newer searchCriteria
// shape is tried first; older deployments take a bare projectId.
func (s *Service) ProjectTasks(ctx context.Context, src upstream.CredentialSource, projectID string) ([]Task, error) {
	candidates := []rpc.Candidate{
		{
			Method: "leantime.rpc.tickets.getAll",
			Params: map[string]any{"searchCriteria": map[string]any{"currentProject": projectID}},
		},
		{
			Method: "leantime.rpc.tickets.getAll",
			Params: map[string]any{"projectId": projectID},
		},
	}
	raw, err := s.chain.Run(ctx, src, "tasks.project", candidates)
	if err != nil {
		return nil, err
	}
	return decodeTasks(raw), nil
}

// Milestones fetches a project's milestones. The upstream mixes plain
// tickets into the milestone listing, so rows are filtered by type.
func (s *Service) Milestones(ctx context.Context, src upstream.CredentialSource, projectID string) ([]Milestone, error) {
	raw, err := s.caller.Call(ctx, src, "leantime.rpc.tickets.getAllMilestones", map[string]any{
		"searchCriteria": map[string]any{"currentProject": projectID},
	})
	if err != nil {
		return nil, err
	}
	seq := normalize.ToSequence(raw)
	milestones := make([]Milestone, 0, len(seq))
	for _, item := range seq {
		var m Milestone
		if err := json.Unmarshal(item, &m); err != nil {
			continue
		}
		if m.Type != "milestone" {
			continue
		}
		milestones = append(milestones, m)
	}
	return milestones, nil
}

// AddTask creates a ticket and returns the raw upstream result, which
// is the new id on most versions.
func (s *Service) AddTask(ctx context.Context, src upstream.CredentialSource, values map[string]any) (json.RawMessage, error) {
	return s.caller.Call(ctx, src, "leantime.rpc.tickets.addTicket", map[string]any{"values": values})
}

// UpdateTask updates ticket fields. The id rides inside values, which
// is the shape every version agrees on.
func (s *Service) UpdateTask(ctx context.Context, src upstream.CredentialSource, id string, values map[string]any) error {
	merged := map[string]any{"id": id}
	for k, v := range values {
		merged[k] = v
	}
	_, err := s.caller.Call(ctx, src, "leantime.rpc.tickets.updateTicket", map[string]any{"values": merged})
	return err
}

// ChangeTaskStatus moves a ticket to a new status column. Three method
// generations are in the wild; patch is the current one.
func (s *Service) ChangeTaskStatus(ctx context.Context, src upstream.CredentialSource, id, status string) error {
	candidates := []rpc.Candidate{
		{Method: "leantime.rpc.tickets.patch", Params: map[string]any{"id": id, "params": map[string]any{"status": status}}},
		{Method: "leantime.rpc.tickets.update", Params: map[string]any{"id": id, "values": map[string]any{"status": status}}},
		{Method: "leantime.rpc.tickets.updateTicketStatus", Params: map[string]any{"id": id, "status": status}},
	}
	_, err := s.chain.Run(ctx, src, "tasks.status", candidates)
	return err
}

// DeleteTask removes a ticket.
func (s *Service) DeleteTask(ctx context.Context, src upstream.CredentialSource, id string) error {
	candidates := []rpc.Candidate{
		{Method: "leantime.rpc.tickets.deleteTicket", Params: map[string]any{"id": id}},
		{Method: "leantime.rpc.tickets.delete", Params: map[string]any{"id": id}},
	}
	_, err := s.chain.Run(ctx, src, "tasks.delete", candidates)
	return err
}

func decodeTasks(raw json.RawMessage) []Task {
	seq := normalize.ToSequence(raw)
	tasks := make([]Task, 0, len(seq))
	for _, item := range seq {
		var t Task
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}
