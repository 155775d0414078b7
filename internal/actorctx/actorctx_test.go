package actorctx

import (
	"context"
	"testing"
)

func TestPrincipalRoundTrip(t *testing.T) {
	if _, ok := PrincipalFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no principal")
	}

	ctx := WithPrincipal(context.Background(), Principal{UserID: 3, Email: "a@x.com", Role: "admin"})
	p, ok := PrincipalFrom(ctx)
	if !ok || p.UserID != 3 || p.Role != "admin" {
		t.Fatalf("got %+v ok=%v", p, ok)
	}

	if _, ok := PrincipalFrom(WithPrincipal(context.Background(), Principal{UserID: 1})); ok {
		t.Fatalf("principal without role should be rejected")
	}
}
