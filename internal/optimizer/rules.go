package optimizer

import (
	ounet "github.com/lex00/ou-network-go"
	"github.com/lex00/ou-network-go/internal/template"
)

var allRules = concat(s3BucketRules, kmsKeyRules, logGroupRules, lambdaFunctionRules, iamRules, networkRules, genericRules)

func concat(groups ...[]Rule) []Rule {
	var rules []Rule
	for _, g := range groups {
		rules = append(rules, g...)
	}
	return rules
}

// s3BucketRules contains optimization rules for S3 buckets.
var s3BucketRules = []Rule{
	{
		ID:       "OPT-S3-001",
		Category: "security",
		Severity: "high",
		Types:    []string{"AWS::S3::Bucket"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			if _, ok := res.Properties["BucketEncryption"]; ok {
				return nil
			}
			return &Finding{
				Title:       "Enable S3 bucket encryption",
				Description: "S3 buckets should have server-side encryption enabled to protect data at rest.",
				Suggestion:  "Add BucketEncryption with SSE-S3 or SSE-KMS configuration.",
			}
		},
	},
	{
		ID:       "OPT-S3-002",
		Category: "security",
		Severity: "high",
		Types:    []string{"AWS::S3::Bucket"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			block, _ := res.Properties["PublicAccessBlockConfiguration"].(map[string]any)
			for _, flag := range []string{"BlockPublicAcls", "BlockPublicPolicy", "IgnorePublicAcls", "RestrictPublicBuckets"} {
				if block[flag] != true {
					return &Finding{
						Title:       "Block public access",
						Description: "S3 buckets should have PublicAccessBlockConfiguration to prevent accidental public exposure.",
						Suggestion:  "Set BlockPublicAcls, BlockPublicPolicy, IgnorePublicAcls and RestrictPublicBuckets to true.",
					}
				}
			}
			return nil
		},
	},
	{
		ID:       "OPT-S3-003",
		Category: "reliability",
		Severity: "medium",
		Types:    []string{"AWS::S3::Bucket"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			versioning, _ := res.Properties["VersioningConfiguration"].(map[string]any)
			if versioning["Status"] == "Enabled" {
				return nil
			}
			return &Finding{
				Title:       "Enable versioning",
				Description: "S3 bucket versioning protects against accidental deletion and allows recovery of previous versions.",
				Suggestion:  "Set VersioningConfiguration.Status to Enabled.",
			}
		},
	},
}

// kmsKeyRules contains optimization rules for KMS keys.
var kmsKeyRules = []Rule{
	{
		ID:       "OPT-KMS-001",
		Category: "security",
		Severity: "medium",
		Types:    []string{"AWS::KMS::Key"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			if res.Properties["EnableKeyRotation"] == true {
				return nil
			}
			return &Finding{
				Title:       "Enable key rotation",
				Description: "Customer managed keys without automatic rotation keep the same key material indefinitely.",
				Suggestion:  "Set EnableKeyRotation to true.",
			}
		},
	},
}

// logGroupRules contains optimization rules for CloudWatch log groups.
var logGroupRules = []Rule{
	{
		ID:       "OPT-LOGS-001",
		Category: "security",
		Severity: "low",
		Types:    []string{"AWS::Logs::LogGroup"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			if _, ok := res.Properties["KmsKeyId"]; ok {
				return nil
			}
			return &Finding{
				Title:       "Encrypt the log group with a customer managed key",
				Description: "Log groups are encrypted with an AWS owned key unless KmsKeyId is set.",
				Suggestion:  "Set VPC_FLOWLOGS_KMS_ARN or add KmsKeyId to the log group.",
			}
		},
	},
	{
		ID:       "OPT-LOGS-002",
		Category: "cost",
		Severity: "medium",
		Types:    []string{"AWS::Logs::LogGroup"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			if _, ok := res.Properties["RetentionInDays"]; ok {
				return nil
			}
			return &Finding{
				Title:       "Set a log retention period",
				Description: "Log groups without RetentionInDays keep every event forever.",
				Suggestion:  "Add RetentionInDays to the log group.",
			}
		},
	},
}

// deprecatedRuntimes are Lambda runtimes past their deprecation date.
var deprecatedRuntimes = []string{"python2.7", "python3.6", "python3.7", "python3.8", "nodejs12.x", "nodejs14.x", "nodejs16.x", "go1.x"}

// lambdaFunctionRules contains optimization rules for Lambda functions.
var lambdaFunctionRules = []Rule{
	{
		ID:       "OPT-LAM-001",
		Category: "reliability",
		Severity: "high",
		Types:    []string{"AWS::Lambda::Function"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			runtime, _ := res.Properties["Runtime"].(string)
			for _, r := range deprecatedRuntimes {
				if runtime == r {
					return &Finding{
						Title:       "Upgrade the deprecated runtime " + runtime,
						Description: "Functions on deprecated runtimes can no longer be created or updated.",
						Suggestion:  "Move the function to a supported runtime.",
					}
				}
			}
			return nil
		},
	},
}

// iamRules contains optimization rules for IAM resources.
var iamRules = []Rule{
	{
		ID:       "OPT-IAM-001",
		Category: "security",
		Severity: "high",
		Types:    []string{"AWS::IAM::Role", "AWS::IAM::Policy", "AWS::IAM::ManagedPolicy"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			for _, doc := range policyDocuments(res) {
				for _, stmt := range statements(doc) {
					if stmt["Effect"] != "Allow" {
						continue
					}
					if hasWildcard(stmt["Action"]) {
						return &Finding{
							Title:       "Replace wildcard actions",
							Description: "An Allow statement grants every action (*).",
							Suggestion:  "List the specific actions the principal needs.",
						}
					}
				}
			}
			return nil
		},
	},
}

// networkRules look at a resource together with the rest of its template.
var networkRules = []Rule{
	{
		ID:       "OPT-NET-001",
		Category: "reliability",
		Severity: "medium",
		Types:    []string{"AWS::EC2::VPC"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			nats := countType(t, "AWS::EC2::NatGateway")
			public := countTagged(t, "AWS::EC2::Subnet", "SubnetTier", "public")
			if nats == 0 || nats >= public {
				return nil
			}
			return &Finding{
				Title:       "NAT gateways do not cover every availability zone",
				Description: "Private subnets in an AZ without its own NAT gateway lose egress when the gateway's AZ fails.",
				Suggestion:  "Deploy one NAT gateway per AZ, for example with MAX_AZS_IN_PROD_ACCOUNT in the prod account.",
			}
		},
	},
	{
		ID:       "OPT-NET-002",
		Category: "security",
		Severity: "medium",
		Types:    []string{"AWS::EC2::VPC"},
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			for _, other := range t.Resources {
				if other.Type == "AWS::EC2::FlowLog" && refersTo(other.Properties["ResourceId"], name) {
					return nil
				}
			}
			return &Finding{
				Title:       "Enable VPC flow logs",
				Description: "Without flow logs rejected and accepted traffic of the VPC is not recorded.",
				Suggestion:  "Add an AWS::EC2::FlowLog with ResourceType VPC.",
			}
		},
	},
}

// genericRules apply to every resource type.
var genericRules = []Rule{
	{
		ID:       "OPT-GEN-001",
		Category: "reliability",
		Severity: "low",
		Check: func(name string, res ounet.ResourceDef, t *ounet.Template) *Finding {
			if !statefulTypes[res.Type] || res.DeletionPolicy == "Retain" || res.DeletionPolicy == "Snapshot" {
				return nil
			}
			return &Finding{
				Title:       "Retain stateful resource on stack deletion",
				Description: res.Type + " holds data that is lost when the stack is deleted.",
				Suggestion:  "Set DeletionPolicy to Retain if the data must outlive the stack.",
			}
		},
	},
}

var statefulTypes = map[string]bool{
	"AWS::S3::Bucket":     true,
	"AWS::KMS::Key":       true,
	"AWS::Logs::LogGroup": true,
}

func policyDocuments(res ounet.ResourceDef) []map[string]any {
	var docs []map[string]any
	if doc, ok := res.Properties["PolicyDocument"].(map[string]any); ok {
		docs = append(docs, doc)
	}
	policies, _ := res.Properties["Policies"].([]any)
	for _, p := range policies {
		if pm, ok := p.(map[string]any); ok {
			if doc, ok := pm["PolicyDocument"].(map[string]any); ok {
				docs = append(docs, doc)
			}
		}
	}
	return docs
}

func statements(doc map[string]any) []map[string]any {
	var stmts []map[string]any
	switch s := doc["Statement"].(type) {
	case map[string]any:
		stmts = append(stmts, s)
	case []any:
		for _, v := range s {
			if m, ok := v.(map[string]any); ok {
				stmts = append(stmts, m)
			}
		}
	}
	return stmts
}

func hasWildcard(v any) bool {
	switch a := v.(type) {
	case string:
		return a == "*"
	case []any:
		for _, item := range a {
			if item == "*" {
				return true
			}
		}
	}
	return false
}

func countType(t *ounet.Template, resourceType string) int {
	n := 0
	for _, res := range t.Resources {
		if res.Type == resourceType {
			n++
		}
	}
	return n
}

func countTagged(t *ounet.Template, resourceType, key, value string) int {
	n := 0
	for _, res := range t.Resources {
		if res.Type != resourceType {
			continue
		}
		tags, _ := res.Properties["Tags"].([]any)
		for _, tag := range tags {
			if m, ok := tag.(map[string]any); ok && m["Key"] == key && m["Value"] == value {
				n++
				break
			}
		}
	}
	return n
}

// refersTo reports whether v is or contains a reference to the resource called name.
func refersTo(v any, name string) bool {
	for _, ref := range template.References(v) {
		if ref == name {
			return true
		}
	}
	return false
}
