package access

import (
	"context"
	"testing"

	"github.com/openendpoint/openendpoint/internal/iam"
	"github.com/openendpoint/openendpoint/internal/metadata"
	"github.com/openendpoint/openendpoint/internal/metadata/pebble"
)

func newTestStore(t *testing.T) metadata.Store {
	t.Helper()
	store, err := pebble.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open metadata store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEvaluator_NoSuchBucket(t *testing.T) {
	store := newTestStore(t)
	eval := New(iam.NewPolicyEvaluator(), store, false, false)

	err := eval.Authorize(context.Background(), Request{
		Principal: "alice",
		Action:    "s3:GetObject",
		Bucket:    "missing-bucket",
		Key:       "k",
	})
	if err != ErrNoSuchBucket {
		t.Fatalf("err = %v, want ErrNoSuchBucket", err)
	}
}

func TestEvaluator_OwnerAllowedViaACL(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket(context.Background(), "b", "alice"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if err := store.PutBucketACL(context.Background(), "b", &metadata.AccessControlPolicy{
		Owner: metadata.Owner{ID: "alice"},
	}); err != nil {
		t.Fatalf("PutBucketACL: %v", err)
	}

	eval := New(iam.NewPolicyEvaluator(), store, false, false)
	err := eval.Authorize(context.Background(), Request{
		Principal: "alice",
		Action:    "s3:PutObject",
		Bucket:    "b",
	})
	if err != nil {
		t.Fatalf("owner should be authorized, got %v", err)
	}
}

func TestEvaluator_DefaultDenyForStranger(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket(context.Background(), "b", "alice"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}

	eval := New(iam.NewPolicyEvaluator(), store, false, false)
	err := eval.Authorize(context.Background(), Request{
		Principal: "mallory",
		Action:    "s3:PutObject",
		Bucket:    "b",
	})
	if err != ErrAccessDenied {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
}

func TestEvaluator_NoSuchKeyTakesPriorityOnRead(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket(context.Background(), "b", "alice"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}

	eval := New(iam.NewPolicyEvaluator(), store, false, false)
	err := eval.Authorize(context.Background(), Request{
		Principal: "mallory",
		Action:    "s3:GetObject",
		Bucket:    "b",
		Key:       "missing-key",
		KeyExists: false,
	})
	if err != ErrNoSuchKey {
		t.Fatalf("err = %v, want ErrNoSuchKey", err)
	}
}

func TestEvaluator_AllUsersGroupGrantsAnonymousRead(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket(context.Background(), "b", "alice"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if err := store.PutBucketACL(context.Background(), "b", &metadata.AccessControlPolicy{
		Owner: metadata.Owner{ID: "alice"},
		Grants: []metadata.Grant{
			{Grantee: metadata.Grantee{Type: "Group", URI: iam.AllUsersGroup}, Permission: iam.PermissionRead},
		},
	}); err != nil {
		t.Fatalf("PutBucketACL: %v", err)
	}

	eval := New(iam.NewPolicyEvaluator(), store, false, false)
	err := eval.Authorize(context.Background(), Request{
		Principal: "",
		Action:    "s3:ListBucket",
		Bucket:    "b",
	})
	if err != nil {
		t.Fatalf("AllUsers grant should authorize anonymous read, got %v", err)
	}
}

func TestEvaluator_DenyPolicyWinsOverAllowACL(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket(context.Background(), "b", "alice"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if err := store.PutBucketACL(context.Background(), "b", &metadata.AccessControlPolicy{
		Owner: metadata.Owner{ID: "alice"},
		Grants: []metadata.Grant{
			{Grantee: metadata.Grantee{Type: "CanonicalUser", ID: "bob"}, Permission: iam.PermissionRead},
		},
	}); err != nil {
		t.Fatalf("PutBucketACL: %v", err)
	}

	policy := iam.NewPolicyEvaluator()
	policy.AddPolicy(&iam.IAMPolicy{
		ID: "deny-bob",
		Statements: []iam.IAMStatement{
			{
				Effect:    "Deny",
				Principal: &iam.IAMPrincipal{AWS: []string{"bob"}},
				Actions:   []string{"s3:ListBucket"},
				Resources: []string{"arn:aws:s3:::b"},
			},
		},
	})

	eval := New(policy, store, false, false)
	err := eval.Authorize(context.Background(), Request{
		Principal: "bob",
		Action:    "s3:ListBucket",
		Bucket:    "b",
	})
	if err != ErrAccessDenied {
		t.Fatalf("err = %v, want ErrAccessDenied (deny should win over ACL allow)", err)
	}
}

func TestEvaluator_TestPrincipalBypass(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateBucket(context.Background(), "b", "alice"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}

	eval := New(iam.NewPolicyEvaluator(), store, true, false)
	err := eval.Authorize(context.Background(), Request{
		Principal: "test",
		Action:    "s3:DeleteObject",
		Bucket:    "b",
		Key:       "anything",
	})
	if err != nil {
		t.Fatalf("test principal bypass should authorize unconditionally, got %v", err)
	}
}
