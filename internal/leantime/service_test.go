package leantime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanmobile/leanbridge/internal/apperr"
	"github.com/leanmobile/leanbridge/internal/config"
	"github.com/leanmobile/leanbridge/internal/upstream"
)

// stubCaller routes calls to a handler function and records them.
type stubCaller struct {
	calls  []call
	handle func(method string, params any) (json.RawMessage, error)
}

type call struct {
	method string
	params any
}

func (s *stubCaller) Call(_ context.Context, _ upstream.CredentialSource, method string, params any) (json.RawMessage, error) {
	s.calls = append(s.calls, call{method: method, params: params})
	return s.handle(method, params)
}

func newTestService(handle func(method string, params any) (json.RawMessage, error)) (*Service, *stubCaller) {
	caller := &stubCaller{handle: handle}
	svc := New(caller, config.DefaultProbe(), zerolog.Nop(), nil)
	return svc, caller
}

func notFound(method string) error {
	return apperr.RPC(method, -32601, "Method not found")
}

var ctx = context.Background()
var noCreds = upstream.CredentialSource{}

func TestMyTasks_FirstCandidateWins(t *testing.T) {
	svc, caller := newTestService(func(method string, params any) (json.RawMessage, error) {
		return json.RawMessage(`[{"id":1,"headline":"One"}]`), nil
	})

	tasks, err := svc.MyTasks(ctx, noCreds)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "One", tasks[0].Name())
	assert.Len(t, caller.calls, 1)
}

func TestMyTasks_EmptyResultRotates(t *testing.T) {
	svc, caller := newTestService(func(method string, params any) (json.RawMessage, error) {
		if method == "leantime.rpc.tickets.getMyTickets" {
			return json.RawMessage(`{"4":{"id":4,"headline":"Mine"}}`), nil
		}
		// First candidate answers the wrong scope with an empty object.
		return json.RawMessage(`{}`), nil
	})

	tasks, err := svc.MyTasks(ctx, noCreds)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Mine", tasks[0].Name())
	assert.Len(t, caller.calls, 2)
}

func TestMyTasks_FinalCandidateAcceptsEmpty(t *testing.T) {
	svc, caller := newTestService(func(method string, params any) (json.RawMessage, error) {
		return json.RawMessage(`[]`), nil
	})

	tasks, err := svc.MyTasks(ctx, noCreds)
	require.NoError(t, err, "a genuinely empty board is not an error")
	assert.Empty(t, tasks)
	assert.Len(t, caller.calls, 5, "every candidate tried before concluding empty")
}

func TestProjectTasks_FallsBackToLegacyShape(t *testing.T) {
	svc, caller := newTestService(func(method string, params any) (json.RawMessage, error) {
		p := params.(map[string]any)
		if _, legacy := p["projectId"]; legacy {
			return json.RawMessage(`[{"id":9,"headline":"Legacy"}]`), nil
		}
		return nil, notFound(method)
	})

	tasks, err := svc.ProjectTasks(ctx, noCreds, "12")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Legacy", tasks[0].Name())
	assert.Len(t, caller.calls, 2)
}

func TestMilestones_FiltersByType(t *testing.T) {
	svc, _ := newTestService(func(method string, params any) (json.RawMessage, error) {
		assert.Equal(t, "leantime.rpc.tickets.getAllMilestones", method)
		return json.RawMessage(`[
			{"id":1,"headline":"M1","type":"milestone"},
			{"id":2,"headline":"Just a task","type":"task"},
			{"id":3,"headline":"M2","type":"milestone"}
		]`), nil
	})

	milestones, err := svc.Milestones(ctx, noCreds, "12")
	require.NoError(t, err)
	require.Len(t, milestones, 2)
	assert.Equal(t, "M1", milestones[0].Headline)
	assert.Equal(t, "M2", milestones[1].Headline)
}

func TestChangeTaskStatus_RotatesThroughGenerations(t *testing.T) {
	svc, caller := newTestService(func(method string, params any) (json.RawMessage, error) {
		if method == "leantime.rpc.tickets.update" {
			return json.RawMessage(`true`), nil
		}
		return nil, notFound(method)
	})

	require.NoError(t, svc.ChangeTaskStatus(ctx, noCreds, "7", "4"))
	require.Len(t, caller.calls, 2, "stops at the first generation that answers")
	assert.Equal(t, "leantime.rpc.tickets.patch", caller.calls[0].method)
	assert.Equal(t, "leantime.rpc.tickets.update", caller.calls[1].method)
}

func TestDeleteTask_Fallback(t *testing.T) {
	svc, caller := newTestService(func(method string, params any) (json.RawMessage, error) {
		if method == "leantime.rpc.tickets.delete" {
			return json.RawMessage(`true`), nil
		}
		return nil, notFound(method)
	})

	require.NoError(t, svc.DeleteTask(ctx, noCreds, "7"))
	assert.Len(t, caller.calls, 2)
}

func TestUpdateTask_IDRidesInsideValues(t *testing.T) {
	svc, caller := newTestService(func(method string, params any) (json.RawMessage, error) {
		return json.RawMessage(`true`), nil
	})

	require.NoError(t, svc.UpdateTask(ctx, noCreds, "7", map[string]any{"headline": "New"}))
	p := caller.calls[0].params.(map[string]any)
	values := p["values"].(map[string]any)
	assert.Equal(t, "7", values["id"])
	assert.Equal(t, "New", values["headline"])
}

func TestCurrentUser_FallsBackToAuthNamespace(t *testing.T) {
	svc, caller := newTestService(func(method string, params any) (json.RawMessage, error) {
		if method == "leantime.rpc.auth.currentUser" {
			return json.RawMessage(`{"id":7,"firstname":"Anna","lastname":"Kowalska"}`), nil
		}
		return nil, notFound(method)
	})

	u, err := svc.CurrentUser(ctx, noCreds)
	require.NoError(t, err)
	assert.Equal(t, Flex("7"), u.ID)
	assert.Equal(t, "Anna Kowalska", u.DisplayName())
	assert.Len(t, caller.calls, 2)
}

func TestCurrentUser_NoIdentity(t *testing.T) {
	svc, _ := newTestService(func(method string, params any) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})

	_, err := svc.CurrentUser(ctx, noCreds)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestFindUserByEmail(t *testing.T) {
	svc, _ := newTestService(func(method string, params any) (json.RawMessage, error) {
		return json.RawMessage(`[
			{"id":1,"user":"first@example.com"},
			{"id":"2","user":"Anna@Example.com","firstname":"Anna"}
		]`), nil
	})

	u, err := svc.FindUserByEmail(ctx, noCreds, "anna@example.com")
	require.NoError(t, err)
	require.NotNil(t, u, "email match is case-insensitive")
	assert.Equal(t, Flex("2"), u.ID)

	missing, err := svc.FindUserByEmail(ctx, noCreds, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStatusLabels_FailureDegradesToFallback(t *testing.T) {
	svc, _ := newTestService(func(method string, params any) (json.RawMessage, error) {
		return nil, apperr.Transport(method, context.DeadlineExceeded)
	})

	labels := svc.StatusLabels(ctx, noCreds)
	assert.Equal(t, "Nowe", labels[0].L)
	assert.Len(t, labels, 6)
}

func TestIsActive(t *testing.T) {
	assert.True(t, IsActive(Project{ID: "1"}))
	assert.False(t, IsActive(Project{ID: "1", State: "1"}))
	assert.False(t, IsActive(Project{ID: "1", State: "-1"}))
	assert.False(t, IsActive(Project{ID: "1", Status: "closed"}))
	assert.False(t, IsActive(Project{ID: "1", Status: "archived"}))
	assert.True(t, IsActive(Project{ID: "1", State: "0", Status: "open"}))
}

func TestHealthVocabulary(t *testing.T) {
	code, ok := HealthCode("yellow")
	require.True(t, ok)
	assert.Equal(t, 1, code)

	_, ok = HealthCode("purple")
	assert.False(t, ok)

	h, ok := HealthLabel("2")
	require.True(t, ok)
	assert.Equal(t, "Problem", h.Label)
	assert.Equal(t, "#e74c3c", h.Color)

	_, ok = HealthLabel("9")
	assert.False(t, ok)
}

func TestFlex_MixedScalars(t *testing.T) {
	var task Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"status":"4","projectId":null}`), &task))
	assert.Equal(t, Flex("7"), task.ID)
	assert.Equal(t, Flex("4"), task.Status)
	assert.Equal(t, Flex(""), task.ProjectID)
}

func TestTaskAssignee_WalksFieldGenerations(t *testing.T) {
	assert.Equal(t, "Anna Kowalska", Task{
		EditorFirstname: "Anna", EditorLastname: "Kowalska",
		UserFirstname: "Jan", UserLastname: "Nowak",
	}.Assignee(), "editor fields win when present")
	assert.Equal(t, "Jan Nowak", Task{UserFirstname: "Jan", UserLastname: "Nowak"}.Assignee())
	assert.Equal(t, "jan.nowak", Task{Responsible: "jan.nowak"}.Assignee())
	assert.Equal(t, "", Task{}.Assignee())

	var task Task
	require.NoError(t, json.Unmarshal(
		[]byte(`{"id":3,"userId":9,"userFirstname":"Jan","userLastname":"Nowak","responsible":"jan.nowak"}`),
		&task))
	assert.Equal(t, Flex("9"), task.UserID)
	assert.Equal(t, "Jan", task.UserFirstname)
	assert.Equal(t, "jan.nowak", task.Responsible)
}

func TestIsDone(t *testing.T) {
	assert.True(t, IsDone("0"))
	assert.True(t, IsDone("5"))
	assert.False(t, IsDone("4"))
}
