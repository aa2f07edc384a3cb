package auth

import (
	"context"
	"errors"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type fakeFirebaseClient struct {
	token        *firebaseauth.Token
	err          error
	plainCalls   int
	revokedCalls int
	hadDeadline  bool
}

func (f *fakeFirebaseClient) VerifyIDToken(ctx context.Context, _ string) (*firebaseauth.Token, error) {
	f.plainCalls++
	_, f.hadDeadline = ctx.Deadline()
	return f.token, f.err
}

func (f *fakeFirebaseClient) VerifyIDTokenAndCheckRevoked(ctx context.Context, _ string) (*firebaseauth.Token, error) {
	f.revokedCalls++
	_, f.hadDeadline = ctx.Deadline()
	return f.token, f.err
}

func TestFirebaseVerifier_PlainVerification(t *testing.T) {
	client := &fakeFirebaseClient{token: &firebaseauth.Token{UID: "buyer-1"}}
	verifier := newFirebaseVerifier(client)

	token, err := verifier.VerifyIDToken(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("VerifyIDToken: %v", err)
	}
	if token.UID != "buyer-1" {
		t.Fatalf("unexpected uid %s", token.UID)
	}
	if client.plainCalls != 1 || client.revokedCalls != 0 {
		t.Fatalf("expected plain verification only, got plain=%d revoked=%d", client.plainCalls, client.revokedCalls)
	}
	if !client.hadDeadline {
		t.Fatalf("expected verification to run with a deadline")
	}
}

func TestFirebaseVerifier_RevocationCheck(t *testing.T) {
	client := &fakeFirebaseClient{token: &firebaseauth.Token{UID: "buyer-2"}}
	verifier := newFirebaseVerifier(client, WithRevocationCheck(true))

	if _, err := verifier.VerifyIDToken(context.Background(), "id-token"); err != nil {
		t.Fatalf("VerifyIDToken: %v", err)
	}
	if client.revokedCalls != 1 || client.plainCalls != 0 {
		t.Fatalf("expected revocation-aware verification, got plain=%d revoked=%d", client.plainCalls, client.revokedCalls)
	}
}

func TestFirebaseVerifier_PassesThroughErrors(t *testing.T) {
	boom := errors.New("boom")
	verifier := newFirebaseVerifier(&fakeFirebaseClient{err: boom}, WithRevocationCheck(true))

	if _, err := verifier.VerifyIDToken(context.Background(), "id-token"); !errors.Is(err, boom) {
		t.Fatalf("expected underlying error, got %v", err)
	}
}

func TestFirebaseVerifier_Uninitialised(t *testing.T) {
	var verifier *FirebaseVerifier
	if _, err := verifier.VerifyIDToken(context.Background(), "id-token"); err == nil {
		t.Fatalf("expected error from nil verifier")
	}
}
