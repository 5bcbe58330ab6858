// Package access implements the authorization decision that sits between
// SigV4 principal extraction and the object engine: given a principal, an
// S3 action, and a bucket/key, decide allow or deny by walking bucket
// policy then bucket/object ACL, with a bucket-existence check ordered
// ahead of both so that an unauthenticated request against a missing
// bucket reports NoSuchBucket rather than leaking nothing through a denial.
package access

import (
	"context"
	"errors"

	"github.com/openendpoint/openendpoint/internal/iam"
	"github.com/openendpoint/openendpoint/internal/metadata"
)

// ErrAccessDenied is returned when no policy or ACL grants the requested
// action and no special-principal bypass applies.
var ErrAccessDenied = errors.New("access: denied")

// ErrNoSuchBucket is returned when the bucket-existence check fails before
// any authorization decision is made.
var ErrNoSuchBucket = errors.New("access: no such bucket")

// Request describes one authorization check.
type Request struct {
	Principal string // resolved username/access-key owner, "" if anonymous
	Action    string // e.g. "s3:GetObject"
	Bucket    string
	Key       string // empty for bucket-level actions
	KeyExists bool   // set by the caller for Get/HeadObject so the NoSuchKey
	                 // special case can take priority over AccessDenied
}

// Evaluator is the four-phase access decision: special principals, bucket
// existence, bucket policy, then ACL, falling through to default deny.
type Evaluator struct {
	policy              *iam.PolicyEvaluator
	store               metadata.Store
	testPrincipalBypass bool
	adminBypass         bool
}

// New creates an Evaluator. testPrincipalBypass and adminBypass are both
// config-gated escape hatches defaulting to false in production; see
// internal/config.
func New(policy *iam.PolicyEvaluator, store metadata.Store, testPrincipalBypass, adminBypass bool) *Evaluator {
	return &Evaluator{
		policy:              policy,
		store:               store,
		testPrincipalBypass: testPrincipalBypass,
		adminBypass:         adminBypass,
	}
}

// Authorize runs the four-phase decision for req. A nil error means the
// action is allowed. For Get/HeadObject on a key that does not exist,
// callers should set req.KeyExists=false so a denial is reported as
// ErrNoSuchKey rather than ErrAccessDenied, matching S3's behavior of not
// revealing object existence through the authorization path before it
// reveals it through the 404 itself.
func (e *Evaluator) Authorize(ctx context.Context, req Request) error {
	if e.testPrincipalBypass && req.Principal == "test" {
		return nil
	}
	if e.adminBypass && req.Principal == "" {
		return nil
	}

	exists, err := e.store.BucketExists(ctx, req.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNoSuchBucket
	}

	resource := "arn:aws:s3:::" + req.Bucket
	if req.Key != "" {
		resource = resource + "/" + req.Key
	}

	if decision := e.policy.Evaluate(req.Principal, req.Action, resource); decision != iam.DecisionNoMatch {
		if decision == iam.DecisionAllow {
			return nil
		}
		return e.deny(req)
	}

	if e.checkACL(ctx, req) {
		return nil
	}

	return e.deny(req)
}

// deny reports ErrNoSuchKey instead of ErrAccessDenied when the caller has
// flagged that the target key does not exist and the action is a read
// (Get/HeadObject), per the NoSuchKey-before-AccessDenied ordering.
func (e *Evaluator) deny(req Request) error {
	if !req.KeyExists && (req.Action == "s3:GetObject" || req.Action == "s3:HeadObject") {
		return ErrNoSuchKey
	}
	return ErrAccessDenied
}

// ErrNoSuchKey mirrors the object-level not-found outcome used by deny
// when a read action targets an absent key.
var ErrNoSuchKey = errors.New("access: no such key")

// checkACL resolves the read/write permission implied by req.Action and
// checks it against the bucket (or object, if req.Key is set) ACL, honoring
// the AllUsers and AuthenticatedUsers group grantees.
func (e *Evaluator) checkACL(ctx context.Context, req Request) bool {
	needed := permissionFor(req.Action)
	if needed == "" {
		return false
	}

	var acl *metadata.AccessControlPolicy
	var err error
	if req.Key != "" {
		acl, err = e.store.GetObjectACL(ctx, req.Bucket, req.Key, "")
	} else {
		acl, err = e.store.GetBucketACL(ctx, req.Bucket)
	}
	if err != nil || acl == nil {
		return false
	}

	if acl.Owner.ID != "" && acl.Owner.ID == req.Principal {
		return true
	}

	for _, grant := range acl.Grants {
		if grant.Permission != needed && grant.Permission != iam.PermissionFullControl {
			continue
		}
		switch grant.Grantee.Type {
		case "CanonicalUser":
			if grant.Grantee.ID == req.Principal {
				return true
			}
		case "Group":
			if grant.Grantee.URI == iam.AllUsersGroup {
				return true
			}
			if grant.Grantee.URI == iam.AuthenticatedGroup && req.Principal != "" {
				return true
			}
		}
	}
	return false
}

// permissionFor maps an S3 action to the ACL permission that grants it.
func permissionFor(action string) string {
	switch action {
	case "s3:GetObject", "s3:HeadObject", "s3:GetObjectAttributes", "s3:ListBucket", "s3:GetObjectVersions", "s3:GetBucketLocation", "s3:ListBucketMultipartUploads":
		return iam.PermissionRead
	case "s3:PutObject", "s3:DeleteObject", "s3:AbortMultipartUpload", "s3:CreateBucket", "s3:DeleteBucket":
		return iam.PermissionWrite
	case "s3:GetBucketAcl", "s3:GetObjectAcl":
		return iam.PermissionReadACP
	case "s3:PutBucketAcl", "s3:PutObjectAcl":
		return iam.PermissionWriteACP
	default:
		return ""
	}
}
