package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModule struct {
	name     string
	startErr error
	log      *[]string
}

func (m *stubModule) Name() string { return m.name }

func (m *stubModule) Start(context.Context) error {
	if m.startErr != nil {
		return m.startErr
	}
	*m.log = append(*m.log, "start "+m.name)
	return nil
}

func (m *stubModule) Stop(context.Context) {
	*m.log = append(*m.log, "stop "+m.name)
}

func TestManagerStartStopOrder(t *testing.T) {
	var log []string
	mgr := NewManager(&stubModule{name: "a", log: &log})
	require.NoError(t, mgr.Add(&stubModule{name: "b", log: &log}))

	require.NoError(t, mgr.Start(context.Background()))
	assert.ErrorIs(t, mgr.Start(context.Background()), ErrStarted)
	assert.ErrorIs(t, mgr.Add(&stubModule{name: "c", log: &log}), ErrStarted)
	assert.Equal(t, []string{"a", "b"}, mgr.Running())

	mgr.Stop(context.Background())
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
}

func TestManagerRollsBackOnFailure(t *testing.T) {
	var log []string
	mgr := NewManager(
		&stubModule{name: "a", log: &log},
		&stubModule{name: "b", log: &log, startErr: errors.New("no token")},
	)

	err := mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module b failed")
	assert.Equal(t, []string{"start a", "stop a"}, log)
	assert.Empty(t, mgr.Running())

	mgr.Stop(context.Background())
	assert.Equal(t, []string{"start a", "stop a"}, log, "modules are not stopped twice")
}

func TestManagerSkipsNilModules(t *testing.T) {
	var log []string
	mgr := NewManager(nil, &stubModule{name: "a", log: &log})
	require.NoError(t, mgr.Add(nil))
	require.NoError(t, mgr.Start(context.Background()))
	assert.Equal(t, []string{"a"}, mgr.Running())
}
