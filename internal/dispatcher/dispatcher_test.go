package dispatcher_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petabytecl/jobu/internal/dispatcher"
	"github.com/petabytecl/jobu/internal/domain"
	"github.com/petabytecl/jobu/internal/queueadapter"
	"github.com/petabytecl/jobu/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T) *store.SQLiteEngine {
	t.Helper()
	ctx := context.Background()
	e, err := store.NewSQLiteEngine(ctx, store.SQLiteConfig{
		Name:        "jobu",
		Path:        ":memory:",
		PoolTimeout: time.Second,
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	require.NoError(t, e.Migrate(ctx))
	return e
}

func createCron(t *testing.T, e *store.SQLiteEngine, d domain.CronDefinition) int64 {
	t.Helper()
	var id int64
	err := store.RunInTransaction(context.Background(), false, func(ctx context.Context) error {
		var err error
		id, err = store.CreateCronDefinition(ctx, e.Name(), &d)
		return err
	}, e)
	require.NoError(t, err)
	return id
}

func countExecutions(t *testing.T, e *store.SQLiteEngine) int {
	t.Helper()
	var n int
	err := store.RunInTransactionReadOnly(context.Background(), func(ctx context.Context) error {
		tc, err := store.From(ctx, e.Name())
		require.NoError(t, err)
		return tc.FetchOne(ctx, "SELECT count(*) FROM executions", nil, &n)
	}, e)
	require.NoError(t, err)
	return n
}

func TestCronDispatcherCreatesExecutionForDueJob(t *testing.T) {
	e := newTestEngine(t)
	createCron(t, e, domain.CronDefinition{
		Name:           "every-minute",
		CronExpression: "* * * * *",
		HandlerName:    "echo",
		HandlerParams:  `{"message":"hi"}`,
		IsEnabled:      true,
		AllowOverlap:   true,
		MaxRetry:       3,
		TimeoutSeconds: 300,
	})

	cfg := dispatcher.CronConfig{Database: e.Name(), PollInterval: time.Minute, MaxSleep: 5 * time.Minute, MinCronInterval: time.Minute}
	d := dispatcher.NewCronDispatcher(cfg, e, nil, testLogger())

	require.NoError(t, d.OnStart(context.Background()))
	t.Cleanup(func() { _ = d.OnStop(context.Background()) })

	require.Eventually(t, func() bool {
		return countExecutions(t, e) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCronDispatcherSkipsDisabledJob(t *testing.T) {
	e := newTestEngine(t)
	createCron(t, e, domain.CronDefinition{
		Name:           "disabled",
		CronExpression: "* * * * *",
		HandlerName:    "echo",
		IsEnabled:      false,
		AllowOverlap:   true,
		MaxRetry:       3,
		TimeoutSeconds: 300,
	})

	cfg := dispatcher.CronConfig{Database: e.Name(), PollInterval: time.Minute, MaxSleep: 5 * time.Minute, MinCronInterval: time.Minute}
	d := dispatcher.NewCronDispatcher(cfg, e, nil, testLogger())

	require.NoError(t, d.OnStart(context.Background()))
	defer func() { _ = d.OnStop(context.Background()) }()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, countExecutions(t, e))
}

func TestCronDispatcherRespectsAllowOverlapFalse(t *testing.T) {
	e := newTestEngine(t)
	jobID := createCron(t, e, domain.CronDefinition{
		Name:           "no-overlap",
		CronExpression: "* * * * *",
		HandlerName:    "sleep",
		IsEnabled:      true,
		AllowOverlap:   false,
		MaxRetry:       3,
		TimeoutSeconds: 300,
	})

	err := store.RunInTransaction(context.Background(), false, func(ctx context.Context) error {
		return store.InsertPendingExecutionIgnoreDuplicate(ctx, e.Name(), &jobID, time.Now().UTC().Add(-time.Hour),
			"sleep", "{}", 3, 300)
	}, e)
	require.NoError(t, err)

	cfg := dispatcher.CronConfig{Database: e.Name(), PollInterval: time.Minute, MaxSleep: 5 * time.Minute, MinCronInterval: time.Minute}
	d := dispatcher.NewCronDispatcher(cfg, e, nil, testLogger())

	require.NoError(t, d.OnStart(context.Background()))
	defer func() { _ = d.OnStop(context.Background()) }()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, countExecutions(t, e))
}

func TestQueueDispatcherResolvesCronHandlerParams(t *testing.T) {
	e := newTestEngine(t)
	createCron(t, e, domain.CronDefinition{
		Name:           "echo-cron",
		CronExpression: "0 0 1 1 *",
		HandlerName:    "echo",
		HandlerParams:  `{"message":"base","repeat":1}`,
		IsEnabled:      true,
		AllowOverlap:   true,
		MaxRetry:       5,
		TimeoutSeconds: 120,
	})

	adapter := queueadapter.NewLocalAdapter(4)
	cfg := dispatcher.QueueConfig{Database: e.Name()}
	d := dispatcher.NewQueueDispatcher(cfg, e, adapter, nil, testLogger())

	require.NoError(t, d.OnStart(context.Background()))
	t.Cleanup(func() { _ = d.OnStop(context.Background()) })

	require.NoError(t, adapter.Publish(context.Background(), domain.QueueMessage{
		HandlerName: "echo",
		Params:      `{"repeat":2}`,
	}))

	require.Eventually(t, func() bool {
		return countExecutions(t, e) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var params string
	var maxRetry int
	err := store.RunInTransactionReadOnly(context.Background(), func(ctx context.Context) error {
		tc, err := store.From(ctx, e.Name())
		require.NoError(t, err)
		return tc.FetchOne(ctx, "SELECT handler_params, max_retry FROM executions LIMIT 1", nil, &params, &maxRetry)
	}, e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"base","repeat":2}`, params)
	assert.Equal(t, 5, maxRetry)
}

func TestQueueDispatcherHandlesUnregisteredHandler(t *testing.T) {
	e := newTestEngine(t)
	adapter := queueadapter.NewLocalAdapter(4)
	cfg := dispatcher.QueueConfig{Database: e.Name()}
	d := dispatcher.NewQueueDispatcher(cfg, e, adapter, nil, testLogger())

	require.NoError(t, d.OnStart(context.Background()))
	t.Cleanup(func() { _ = d.OnStop(context.Background()) })

	require.NoError(t, adapter.Publish(context.Background(), domain.QueueMessage{
		HandlerName: "unregistered",
		Params:      `{"x":1}`,
	}))

	require.Eventually(t, func() bool {
		return countExecutions(t, e) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCronDispatcherHonorsConfiguredMinCronInterval(t *testing.T) {
	e := newTestEngine(t)
	createCron(t, e, domain.CronDefinition{
		Name:           "every-three-minutes",
		CronExpression: "*/3 * * * *",
		HandlerName:    "echo",
		IsEnabled:      true,
		AllowOverlap:   true,
		MaxRetry:       3,
		TimeoutSeconds: 300,
	})

	// A 3-minute interval would pass cronspec's own 60s default floor, but
	// must be rejected once MinCronInterval is configured to 5 minutes.
	cfg := dispatcher.CronConfig{Database: e.Name(), PollInterval: time.Minute, MaxSleep: 5 * time.Minute, MinCronInterval: 5 * time.Minute}
	d := dispatcher.NewCronDispatcher(cfg, e, nil, testLogger())

	require.NoError(t, d.OnStart(context.Background()))
	defer func() { _ = d.OnStop(context.Background()) }()

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, countExecutions(t, e))
}
