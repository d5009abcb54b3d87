package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ActivityPolicyCollectArtifact     = "collect_artifact"
	ActivityPolicyForwardClaimsUpload = "forward_claims_upload"
	ActivityPolicyAbandonArtifact     = "abandon_artifact"
	ActivityPolicyCheckGate           = "check_gate"
	ActivityPolicyGenerateDraft       = "generate_draft"
	ActivityPolicyRecordDraft         = "record_draft"
)

type activityPolicy struct {
	StartToCloseTimeout time.Duration
	RetryPolicy         temporal.RetryPolicy
}

var storeRetry = temporal.RetryPolicy{
	InitialInterval:        1 * time.Second,
	BackoffCoefficient:     2,
	MaximumInterval:        10 * time.Second,
	MaximumAttempts:        3,
	NonRetryableErrorTypes: []string{ErrTypeSessionInvalid, ErrTypeGateLocked, ErrTypeInvalidInput, ErrTypeNotFound},
}

// Activities that call the backend run once. A retry would repeat the
// backend call; failures are settled by abandon_artifact instead.
var backendOnce = temporal.RetryPolicy{
	MaximumAttempts: 1,
}

// Backend calls have no client timeout; StartToClose is the only bound on a
// hung analysis call.
var activityPolicies = map[string]activityPolicy{
	ActivityPolicyCollectArtifact: {
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         backendOnce,
	},
	ActivityPolicyForwardClaimsUpload: {
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         backendOnce,
	},
	ActivityPolicyAbandonArtifact: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
	ActivityPolicyCheckGate: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
	ActivityPolicyGenerateDraft: {
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         backendOnce,
	},
	ActivityPolicyRecordDraft: {
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         storeRetry,
	},
}

func ActivityOptionsFor(policyName string) (workflow.ActivityOptions, error) {
	policy, ok := activityPolicies[policyName]
	if !ok {
		return workflow.ActivityOptions{}, fmt.Errorf("unknown activity policy: %s", policyName)
	}

	retry := policy.RetryPolicy
	return workflow.ActivityOptions{
		StartToCloseTimeout: policy.StartToCloseTimeout,
		RetryPolicy:         &retry,
	}, nil
}

func mustActivityContext(ctx workflow.Context, policyName string) workflow.Context {
	ao, err := ActivityOptionsFor(policyName)
	if err != nil {
		panic(err)
	}
	return workflow.WithActivityOptions(ctx, ao)
}
