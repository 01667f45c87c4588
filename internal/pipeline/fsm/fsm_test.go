package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string
type event string

var table = []Transition[state, event]{
	{From: "idle", Event: "start", To: "running"},
	{From: "running", Event: "finish", To: "done"},
	{From: "running", Event: "fail", To: "failed"},
}

func TestMachine_FireFollowsTable(t *testing.T) {
	m := MustNew[state, event]("idle", table)

	var seen []string
	m.OnTransition(func(from, to state, ev event) {
		seen = append(seen, string(from)+">"+string(to)+":"+string(ev))
	})

	to, err := m.Fire("start")
	require.NoError(t, err)
	assert.Equal(t, state("running"), to)
	assert.True(t, m.Can("finish"))
	assert.False(t, m.Can("start"))

	_, err = m.Fire("finish")
	require.NoError(t, err)
	assert.Equal(t, state("done"), m.State())
	assert.Equal(t, []state{"idle", "running", "done"}, m.History())
	assert.Equal(t, []string{"idle>running:start", "running>done:finish"}, seen)
}

func TestMachine_InvalidTransition(t *testing.T) {
	m := MustNew[state, event]("idle", table)
	from, err := m.Fire("finish")
	require.Error(t, err)
	assert.Equal(t, state("idle"), from)
	assert.Contains(t, err.Error(), "state=idle event=finish")
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New[state, event]("idle", append(table, Transition[state, event]{From: "idle", Event: "start", To: "done"}))
	require.Error(t, err)
	assert.Panics(t, func() {
		MustNew[state, event]("idle", append(table, table[0]))
	})
}
