package status_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/FAU-CDI/skosd/internal/status"
)

func TestStatus_Nil(t *testing.T) {
	t.Parallel()

	var st *status.Status

	// none of these may panic
	st.Log("message")
	st.LogDebug("message")
	st.LogError("message", errors.New("test"))
	st.Start(status.StageLoad)
	st.SetCT(1, 2)
	st.End()

	if got := st.Store().Triples; got != -1 {
		t.Errorf("Store().Triples = %d, want -1", got)
	}

	called := false
	if err := st.DoStage(status.StageLoad, func() error { called = true; return nil }); err != nil || !called {
		t.Errorf("DoStage() = %v, called = %v", err, called)
	}
}

func TestStatus_DoStage(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	st := status.New(&out, false)

	errTest := errors.New("test failure")

	if err := st.DoStage(status.StageLoad, func() error {
		st.SetCT(5, 10)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.DoStage(status.StageReindex, func() error {
		return errTest
	}); !errors.Is(err, errTest) {
		t.Errorf("DoStage() = %v, want %v", err, errTest)
	}

	all := st.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d stages, want 2", len(all))
	}
	if all[0].Stage != status.StageLoad || all[0].Current != 5 || all[0].Total != 10 {
		t.Errorf("All()[0] = %v", all[0])
	}

	for _, want := range []string{"stage=store/load", "FAILED stage", "test failure"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q", want)
		}
	}
}

func TestStatus_StoreStats(t *testing.T) {
	t.Parallel()

	st := status.Discard()
	if got := st.Store().Triples; got != -1 {
		t.Errorf("Store().Triples = %d, want -1", got)
	}

	st.StoreStats(status.StoreStats{Backend: "memory", Triples: 42})
	if got := st.Store(); got.Backend != "memory" || got.Triples != 42 {
		t.Errorf("Store() = %v", got)
	}
}
