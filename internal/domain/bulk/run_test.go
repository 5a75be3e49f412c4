package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKind_IsValid(t *testing.T) {
	assert.True(t, RunKindDevices.IsValid())
	assert.True(t, RunKindTests.IsValid())
	assert.False(t, RunKind("repairs").IsValid())
	assert.False(t, RunKind("").IsValid())
}

func TestRunStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status RunStatus
		want   bool
	}{
		{"pending", RunStatusPending, false},
		{"processing", RunStatusProcessing, false},
		{"completed", RunStatusCompleted, true},
		{"partial", RunStatusPartial, true},
		{"failed", RunStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.status.IsValid())
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
	assert.False(t, RunStatus("done").IsValid())
}

func TestNewRun(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		run, err := NewRun(RunKindDevices, "SN0001", "SN0010", "", "admin")
		require.NoError(t, err)
		assert.Equal(t, RunStatusPending, run.Status)
		assert.Equal(t, 1, run.GetVersion())
		assert.NotEmpty(t, run.ID)
		assert.Empty(t, run.Failures)
	})

	t.Run("invalid kind", func(t *testing.T) {
		_, err := NewRun(RunKind("x"), "1", "2", "", "")
		assert.Error(t, err)
	})

	t.Run("missing serial", func(t *testing.T) {
		_, err := NewRun(RunKindTests, "", "2", "", "")
		assert.Error(t, err)
	})
}

func TestRun_Lifecycle(t *testing.T) {
	newProcessing := func(t *testing.T, total int) *Run {
		run, err := NewRun(RunKindTests, "1", "4", "", "")
		require.NoError(t, err)
		require.NoError(t, run.Start(total))
		return run
	}

	t.Run("completed", func(t *testing.T) {
		run := newProcessing(t, 4)
		require.NoError(t, run.Complete(4, nil))
		assert.Equal(t, RunStatusCompleted, run.Status)
		assert.Equal(t, float64(100), run.SuccessRate())
		assert.NotNil(t, run.CompletedAt)
		assert.Equal(t, 3, run.GetVersion())
	})

	t.Run("partial", func(t *testing.T) {
		run := newProcessing(t, 4)
		require.NoError(t, run.Complete(3, []Failure{{Serial: "2", Code: "NOT_FOUND", Message: "device not found"}}))
		assert.Equal(t, RunStatusPartial, run.Status)
		assert.Equal(t, 1, run.FailedCount)
		assert.Equal(t, float64(75), run.SuccessRate())
		assert.True(t, run.HasFailures())
	})

	t.Run("all failed", func(t *testing.T) {
		run := newProcessing(t, 1)
		require.NoError(t, run.Complete(0, []Failure{{Serial: "1", Code: "X", Message: "x"}}))
		assert.Equal(t, RunStatusFailed, run.Status)
	})

	t.Run("cannot complete twice", func(t *testing.T) {
		run := newProcessing(t, 1)
		require.NoError(t, run.Complete(1, nil))
		assert.Error(t, run.Complete(1, nil))
		assert.Error(t, run.Fail(nil))
	})

	t.Run("cannot start twice", func(t *testing.T) {
		run := newProcessing(t, 1)
		assert.Error(t, run.Start(1))
	})

	t.Run("negative total", func(t *testing.T) {
		run, err := NewRun(RunKindDevices, "1", "2", "", "")
		require.NoError(t, err)
		assert.Error(t, run.Start(-1))
	})

	t.Run("fail", func(t *testing.T) {
		run := newProcessing(t, 5)
		require.NoError(t, run.Fail([]Failure{{Code: "UPSTREAM_UNAVAILABLE", Message: "down"}}))
		assert.Equal(t, RunStatusFailed, run.Status)
		assert.Equal(t, 5, run.FailedCount)
		assert.GreaterOrEqual(t, run.Duration().Nanoseconds(), int64(0))
	})
}

func TestRun_FailuresJSON(t *testing.T) {
	run, err := NewRun(RunKindDevices, "1", "2", "", "")
	require.NoError(t, err)

	s, err := run.FailuresJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	run.Failures = []Failure{{Serial: "1", Code: "DUP", Message: "exists"}}
	s, err = run.FailuresJSON()
	require.NoError(t, err)

	other, err := NewRun(RunKindDevices, "1", "2", "", "")
	require.NoError(t, err)
	require.NoError(t, other.SetFailuresFromJSON(s))
	assert.Equal(t, run.Failures, other.Failures)

	assert.Error(t, other.SetFailuresFromJSON("{"))
	require.NoError(t, other.SetFailuresFromJSON(""))
	assert.Empty(t, other.Failures)
}
