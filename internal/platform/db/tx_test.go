package db

import (
	"context"
	"errors"
	"testing"
)

func TestTxFromContextEmpty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx on a bare context")
	}
}

func TestNoopTxRunnerRunsFn(t *testing.T) {
	called := false
	err := NoopTxRunner{}.WithinTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if !called {
		t.Error("fn was not invoked")
	}
}

func TestNoopTxRunnerPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := NoopTxRunner{}.WithinTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want %v", err, boom)
	}
}
