package enforce

//go:generate mockgen -destination=mocks/mocks.go -package=mocks auditflow/internal/emission Sink

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"auditflow/internal/emission"
	"auditflow/internal/enforce/mocks"
	"auditflow/internal/pipeline"
	"auditflow/internal/registry"
	"auditflow/internal/sink/memory"
)

const (
	evAttempt pipeline.Symbol = "auth.attempt"
	evSuccess pipeline.Symbol = "auth.success"
	evSession pipeline.Symbol = "session.create"
	evFailure pipeline.Symbol = "auth.failure"
)

func loginBindings() registry.Bindings {
	return registry.Bindings{
		"Login": pipeline.OneOfPipelines(
			pipeline.Seq(evAttempt, evSuccess, evSession),
			pipeline.Seq(evAttempt, evFailure),
		),
	}
}

func testGuard(sink emission.Sink) *Guard {
	return New("AuthService", loginBindings(), sink, slog.New(slog.DiscardHandler))
}

func TestRun_CompliantReturnPassesResultThrough(t *testing.T) {
	store := memory.NewStore()
	g := testGuard(store)

	result, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		em.Emit(ctx, evSuccess, nil)
		em.Emit(ctx, evSession, nil)
		return "session-token", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "session-token", result)
	assert.Equal(t, 3, store.Len())
}

func TestRun_UnrelatedEventsBetweenStepsStillPass(t *testing.T) {
	g := testGuard(memory.NewStore())

	_, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		em.Emit(ctx, "cache.warm", nil)
		em.Emit(ctx, evSuccess, nil)
		em.Emit(ctx, evSession, nil)
		return "ok", nil
	})

	assert.NoError(t, err)
}

func TestRun_NormalReturnWithoutTrailIsViolation(t *testing.T) {
	store := memory.NewStore()
	g := testGuard(store)

	result, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		// success claimed, but the rest of the trail is missing
		return "session-token", nil
	})

	var violation *ComplianceViolation
	require.ErrorAs(t, err, &violation)
	assert.Empty(t, result, "the result must be withheld entirely")
	assert.Equal(t, "AuthService.Login", violation.Operation)
	assert.Equal(t, []pipeline.Symbol{evAttempt}, violation.Emitted)
	assert.Equal(t, 1, store.Len(), "emitted events reach the sink despite the violation")
}

func TestRun_WrongOrderIsViolation(t *testing.T) {
	g := testGuard(memory.NewStore())

	_, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		em.Emit(ctx, evSession, nil)
		em.Emit(ctx, evSuccess, nil)
		return "ok", nil
	})

	var violation *ComplianceViolation
	assert.ErrorAs(t, err, &violation)
}

func TestRun_AlternativePipelineSatisfies(t *testing.T) {
	g := testGuard(memory.NewStore())

	_, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		em.Emit(ctx, evFailure, nil)
		return "denied", nil
	})

	assert.NoError(t, err, "the failure pipeline is a declared alternative")
}

func TestRun_OperationErrorPropagatesUnchanged(t *testing.T) {
	store := memory.NewStore()
	g := testGuard(store)
	boom := errors.New("credential backend down")

	_, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		return "", boom
	})

	// The incomplete trail is logged as a gap, never raised as a
	// competing error.
	require.ErrorIs(t, err, boom)
	var violation *ComplianceViolation
	assert.False(t, errors.As(err, &violation))
	assert.Equal(t, 1, store.Len(), "events emitted before the failure stay in the sink")
}

func TestRun_CancelledInvocationSkipsJudgement(t *testing.T) {
	store := memory.NewStore()
	g := testGuard(store)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Run(ctx, g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		cancel()
		return "", ctx.Err()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.Len(), "cancellation never withdraws forwarded events")
}

func TestRun_UnboundOperationIsDefinitionError(t *testing.T) {
	g := testGuard(memory.NewStore())

	_, err := Run(context.Background(), g, "DeleteUser", func(ctx context.Context, em *emission.Emitter) (string, error) {
		return "ok", nil
	})

	var defErr *registry.DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, "DeleteUser", defErr.Operation)
}

func TestRun_SinkSeesEventsBeforeOutcomeIsKnown(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	g := testGuard(sink)

	sink.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		em.Emit(ctx, evSession, nil) // out of order: violation ahead
		return "ok", nil
	})

	var violation *ComplianceViolation
	assert.ErrorAs(t, err, &violation)
}

func TestRun_SinkFailureNeverFailsOperation(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	g := testGuard(sink)

	sink.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("sink unavailable")).Times(3)

	result, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)
		em.Emit(ctx, evSuccess, nil)
		em.Emit(ctx, evSession, nil)
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRun_ConcurrentInvocationsGetDisjointLogs(t *testing.T) {
	store := memory.NewStore()
	g := testGuard(store)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Run(context.Background(), g, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
				em.Emit(ctx, evAttempt, nil)
				em.Emit(ctx, evSuccess, nil)
				em.Emit(ctx, evSession, nil)
				return "ok", nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every invocation contributed exactly its own three events, each
	// with per-invocation sequence numbers.
	records := store.All()
	require.Len(t, records, 60)
	perInvocation := make(map[string][]int)
	for _, r := range records {
		perInvocation[r.Invocation.ID.String()] = append(perInvocation[r.Invocation.ID.String()], r.Event.Seq)
	}
	require.Len(t, perInvocation, 20)
	for _, seqs := range perInvocation {
		assert.ElementsMatch(t, []int{0, 1, 2}, seqs)
	}
}

func TestRun_NestedInvocationsKeepIndependentLogs(t *testing.T) {
	store := memory.NewStore()
	outer := testGuard(store)
	inner := New("SessionService", registry.Bindings{
		"Revoke": pipeline.SetOf(pipeline.Begin(pipeline.Symbol("session.revoke"))),
	}, store, slog.New(slog.DiscardHandler))

	_, err := Run(context.Background(), outer, "Login", func(ctx context.Context, em *emission.Emitter) (string, error) {
		em.Emit(ctx, evAttempt, nil)

		// A nested enforced call gets its own log; its events must not
		// leak into (or satisfy) the outer pipeline.
		_, nestedErr := Run(ctx, inner, "Revoke", func(ctx context.Context, em *emission.Emitter) (struct{}, error) {
			em.Emit(ctx, "session.revoke", nil)
			return struct{}{}, nil
		})
		require.NoError(t, nestedErr)

		em.Emit(ctx, evSuccess, nil)
		em.Emit(ctx, evSession, nil)
		return "ok", nil
	})

	require.NoError(t, err)

	operations := make(map[string]int)
	for _, r := range store.All() {
		operations[r.Invocation.Operation]++
	}
	assert.Equal(t, 3, operations["AuthService.Login"])
	assert.Equal(t, 1, operations["SessionService.Revoke"])
}
