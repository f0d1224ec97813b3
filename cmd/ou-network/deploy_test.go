package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/ou-network-go/internal/deploy"
)

type stubCFN struct {
	changeSet *cloudformation.DescribeChangeSetOutput
	deleted   int
	executed  int
}

func (s *stubCFN) DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error) {
	return &cloudformation.DescribeStacksOutput{
		Stacks: []types.Stack{{StackName: params.StackName, StackStatus: types.StackStatusCreateComplete}},
	}, nil
}

func (s *stubCFN) CreateChangeSet(ctx context.Context, params *cloudformation.CreateChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateChangeSetOutput, error) {
	return &cloudformation.CreateChangeSetOutput{Id: aws.String("cs-1")}, nil
}

func (s *stubCFN) DescribeChangeSet(ctx context.Context, params *cloudformation.DescribeChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeChangeSetOutput, error) {
	return s.changeSet, nil
}

func (s *stubCFN) ExecuteChangeSet(ctx context.Context, params *cloudformation.ExecuteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.ExecuteChangeSetOutput, error) {
	s.executed++
	return &cloudformation.ExecuteChangeSetOutput{}, nil
}

func (s *stubCFN) DeleteChangeSet(ctx context.Context, params *cloudformation.DeleteChangeSetInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DeleteChangeSetOutput, error) {
	s.deleted++
	return &cloudformation.DeleteChangeSetOutput{}, nil
}

func testDeployer(cfn *stubCFN) *deploy.Deployer {
	return &deploy.Deployer{
		CloudFormation: cfn,
		Region:         "us-west-2",
		PollInterval:   time.Millisecond,
		MaxWait:        time.Second,
		Now:            func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func testRequest() deploy.Request {
	return deploy.Request{
		StackName:     "DevVpcStack",
		Account:       "333333333333",
		CallerAccount: "333333333333",
		Template:      []byte(`{"Resources":{}}`),
	}
}

func withConfirm(t *testing.T, answer bool) *int {
	t.Helper()
	asked := 0
	orig := confirmDeploy
	confirmDeploy = func(stackName string, changes int) (bool, error) {
		asked++
		return answer, nil
	}
	t.Cleanup(func() { confirmDeploy = orig })
	return &asked
}

func TestRunDeploy_Declined(t *testing.T) {
	asked := withConfirm(t, false)
	cfn := &stubCFN{changeSet: &cloudformation.DescribeChangeSetOutput{
		Status: types.ChangeSetStatusCreateComplete,
		Changes: []types.Change{{ResourceChange: &types.ResourceChange{
			Action:            types.ChangeActionModify,
			LogicalResourceId: aws.String("Vpc"),
			ResourceType:      aws.String("AWS::EC2::VPC"),
			Replacement:       types.ReplacementTrue,
		}}},
	}}

	var buf bytes.Buffer
	err := runDeploy(context.Background(), &buf, testDeployer(cfn), testRequest(), false)
	require.True(t, errors.Is(err, deploy.ErrDeclined))

	assert.Equal(t, 1, *asked)
	assert.Equal(t, 1, cfn.deleted)
	assert.Equal(t, 0, cfn.executed)
	assert.Contains(t, buf.String(), "ou-network-20260102-030405")
	assert.Contains(t, buf.String(), "Vpc (AWS::EC2::VPC) replacement: True")
}

func TestRunDeploy_NoChanges(t *testing.T) {
	asked := withConfirm(t, true)
	cfn := &stubCFN{changeSet: &cloudformation.DescribeChangeSetOutput{
		Status:       types.ChangeSetStatusFailed,
		StatusReason: aws.String("The submitted information didn't contain changes."),
	}}

	var buf bytes.Buffer
	require.NoError(t, runDeploy(context.Background(), &buf, testDeployer(cfn), testRequest(), false))

	assert.Equal(t, 0, *asked)
	assert.Equal(t, 0, cfn.executed)
	assert.Equal(t, "DevVpcStack is up to date.\n", buf.String())
}

func TestRunDeploy_WrongAccount(t *testing.T) {
	withConfirm(t, true)
	req := testRequest()
	req.CallerAccount = "111111111111"

	err := runDeploy(context.Background(), &bytes.Buffer{}, testDeployer(&stubCFN{}), req, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "111111111111")
}
