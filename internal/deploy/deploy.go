// Package deploy applies synthesized templates through CloudFormation change sets.
package deploy

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/lex00/ou-network-go/internal/awsclient"
	"github.com/lex00/ou-network-go/internal/logging"
	"github.com/lex00/ou-network-go/internal/topology"
)

// MaxInlineTemplateBytes is the largest template CloudFormation accepts in
// the request body. Larger templates must be uploaded to S3.
const MaxInlineTemplateBytes = 51200

// Defaults for polling change sets and stack operations.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 30 * time.Minute
)

// CloudFormationAPI is the CloudFormation subset used for deployments.
type CloudFormationAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
	CreateChangeSet(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error)
	DescribeChangeSet(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error)
	ExecuteChangeSet(ctx context.Context, params *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error)
	DeleteChangeSet(ctx context.Context, params *cloudformation.DeleteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error)
}

// UploadAPI stores templates too large to send inline.
type UploadAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ErrDeclined is returned when the operator declines a deployment.
var ErrDeclined = errors.New("deployment declined")

// Deployer creates and executes change sets.
type Deployer struct {
	CloudFormation CloudFormationAPI
	// S3 and Bucket are optional. When set, every template is uploaded first.
	S3     UploadAPI
	Bucket string
	Region string

	PollInterval time.Duration
	MaxWait      time.Duration
	// Now returns the current time; it names change sets.
	Now func() time.Time
}

// Request describes one stack deployment.
type Request struct {
	StackName string
	// Account is the account the stack is declared for.
	Account string
	// CallerAccount is the account of the deploying credentials.
	CallerAccount string
	Template      []byte
}

// Change is one resource change of a change set.
type Change struct {
	Action      string
	LogicalID   string
	Type        string
	Replacement string
}

// Plan is a created change set awaiting execution.
type Plan struct {
	StackName     string
	ChangeSetName string
	ChangeSetType types.ChangeSetType
	Changes       []Change
	// NoChanges is set when the template matches the deployed stack. The
	// change set has already been deleted.
	NoChanges bool
}

// CheckAccount fails unless the deploying credentials belong to the stack's account.
func CheckAccount(caller, stackAccount string) error {
	if caller == stackAccount {
		return nil
	}
	return &topology.ConfigError{
		Parameters: []string{"AWS_PROFILE"},
		Reason:     fmt.Sprintf("credentials belong to account %s but the stack deploys to %s", caller, stackAccount),
	}
}

// Plan creates a change set for req and waits until it is ready for review.
func (d *Deployer) Plan(ctx context.Context, req Request) (*Plan, error) {
	if err := CheckAccount(req.CallerAccount, req.Account); err != nil {
		return nil, err
	}
	log := logging.With(zap.String("stack", req.StackName))

	changeSetType, err := d.changeSetType(ctx, req.StackName)
	if err != nil {
		return nil, err
	}

	input := &cloudformation.CreateChangeSetInput{
		StackName:     aws.String(req.StackName),
		ChangeSetName: aws.String(d.changeSetName()),
		ChangeSetType: changeSetType,
		Capabilities:  []types.Capability{types.CapabilityCapabilityIam, types.CapabilityCapabilityNamedIam},
	}
	if err := d.attachTemplate(ctx, input, req); err != nil {
		return nil, err
	}

	if _, err := d.CloudFormation.CreateChangeSet(ctx, input); err != nil {
		return nil, fmt.Errorf("creating change set for %s: %w", req.StackName, err)
	}
	log.Info("created change set", zap.String("change_set", *input.ChangeSetName), zap.String("type", string(changeSetType)))

	plan := &Plan{StackName: req.StackName, ChangeSetName: *input.ChangeSetName, ChangeSetType: changeSetType}
	out, err := d.waitForChangeSet(ctx, plan)
	if err != nil {
		return nil, err
	}
	if out == nil {
		plan.NoChanges = true
		log.Info("stack is up to date")
		if err := d.Discard(ctx, plan); err != nil {
			return nil, err
		}
		return plan, nil
	}
	for _, c := range out.Changes {
		if c.ResourceChange == nil {
			continue
		}
		rc := c.ResourceChange
		plan.Changes = append(plan.Changes, Change{
			Action:      string(rc.Action),
			LogicalID:   aws.ToString(rc.LogicalResourceId),
			Type:        aws.ToString(rc.ResourceType),
			Replacement: string(rc.Replacement),
		})
	}
	return plan, nil
}

// Execute runs a planned change set and waits for the stack operation to finish.
func (d *Deployer) Execute(ctx context.Context, plan *Plan) error {
	if plan.NoChanges {
		return nil
	}
	_, err := d.CloudFormation.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
		StackName:     aws.String(plan.StackName),
		ChangeSetName: aws.String(plan.ChangeSetName),
	})
	if err != nil {
		return fmt.Errorf("executing change set %s: %w", plan.ChangeSetName, err)
	}
	logging.Info("executing change set", zap.String("stack", plan.StackName), zap.String("change_set", plan.ChangeSetName))

	describe := &cloudformation.DescribeStacksInput{StackName: aws.String(plan.StackName)}
	if plan.ChangeSetType == types.ChangeSetTypeCreate {
		waiter := cloudformation.NewStackCreateCompleteWaiter(d.CloudFormation, func(o *cloudformation.StackCreateCompleteWaiterOptions) {
			o.MinDelay, o.MaxDelay = d.waiterDelays(o.MaxDelay)
		})
		err = waiter.Wait(ctx, describe, d.maxWait())
	} else {
		waiter := cloudformation.NewStackUpdateCompleteWaiter(d.CloudFormation, func(o *cloudformation.StackUpdateCompleteWaiterOptions) {
			o.MinDelay, o.MaxDelay = d.waiterDelays(o.MaxDelay)
		})
		err = waiter.Wait(ctx, describe, d.maxWait())
	}
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", plan.StackName, err)
	}
	logging.Info("deployed stack", zap.String("stack", plan.StackName))
	return nil
}

// Discard deletes a planned change set without executing it.
func (d *Deployer) Discard(ctx context.Context, plan *Plan) error {
	_, err := d.CloudFormation.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
		StackName:     aws.String(plan.StackName),
		ChangeSetName: aws.String(plan.ChangeSetName),
	})
	if err != nil {
		return fmt.Errorf("deleting change set %s: %w", plan.ChangeSetName, err)
	}
	return nil
}

// changeSetType is CREATE for stacks that do not exist yet or were only
// reviewed, UPDATE otherwise.
func (d *Deployer) changeSetType(ctx context.Context, stackName string) (types.ChangeSetType, error) {
	out, err := d.CloudFormation.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stackName)})
	if err != nil {
		if awsclient.IsStackNotFound(err) {
			return types.ChangeSetTypeCreate, nil
		}
		return "", fmt.Errorf("describing %s: %w", stackName, err)
	}
	if len(out.Stacks) == 0 || out.Stacks[0].StackStatus == types.StackStatusReviewInProgress {
		return types.ChangeSetTypeCreate, nil
	}
	return types.ChangeSetTypeUpdate, nil
}

func (d *Deployer) attachTemplate(ctx context.Context, input *cloudformation.CreateChangeSetInput, req Request) error {
	if d.Bucket == "" || d.S3 == nil {
		if len(req.Template) > MaxInlineTemplateBytes {
			return fmt.Errorf("template of %s is %d bytes, more than the %d inline limit: pass --bucket",
				req.StackName, len(req.Template), MaxInlineTemplateBytes)
		}
		input.TemplateBody = aws.String(string(req.Template))
		return nil
	}

	sum := sha256.Sum256(req.Template)
	key := fmt.Sprintf("%s/%s.template.json", req.StackName, hex.EncodeToString(sum[:8]))
	_, err := d.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(req.Template),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading template of %s: %w", req.StackName, err)
	}
	input.TemplateURL = aws.String(TemplateURL(d.Bucket, d.Region, key))
	return nil
}

// TemplateURL returns the virtual-hosted S3 URL of key.
func TemplateURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// waitForChangeSet polls until the change set is created. It returns nil
// output when the change set failed because there is nothing to change.
func (d *Deployer) waitForChangeSet(ctx context.Context, plan *Plan) (*cloudformation.DescribeChangeSetOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, d.maxWait())
	defer cancel()

	input := &cloudformation.DescribeChangeSetInput{
		StackName:     aws.String(plan.StackName),
		ChangeSetName: aws.String(plan.ChangeSetName),
	}
	for {
		out, err := d.CloudFormation.DescribeChangeSet(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describing change set %s: %w", plan.ChangeSetName, err)
		}
		switch out.Status {
		case types.ChangeSetStatusCreateComplete:
			return out, nil
		case types.ChangeSetStatusFailed:
			reason := aws.ToString(out.StatusReason)
			if isNoChanges(reason) {
				return nil, nil
			}
			return nil, fmt.Errorf("change set %s failed: %s", plan.ChangeSetName, reason)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for change set %s: %w", plan.ChangeSetName, ctx.Err())
		case <-time.After(d.pollInterval()):
		}
	}
}

func isNoChanges(reason string) bool {
	return strings.Contains(reason, "didn't contain changes") ||
		strings.Contains(reason, "No updates are to be performed")
}

func (d *Deployer) changeSetName() string {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return "ou-network-" + now().UTC().Format("20060102-150405")
}

func (d *Deployer) pollInterval() time.Duration {
	if d.PollInterval > 0 {
		return d.PollInterval
	}
	return DefaultPollInterval
}

func (d *Deployer) maxWait() time.Duration {
	if d.MaxWait > 0 {
		return d.MaxWait
	}
	return DefaultMaxWait
}

func (d *Deployer) waiterDelays(maxDelay time.Duration) (time.Duration, time.Duration) {
	minDelay := d.pollInterval()
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return minDelay, maxDelay
}
