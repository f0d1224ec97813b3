// Package s3 contains AWS::S3 CloudFormation resource types.
package s3

// Bucket is AWS::S3::Bucket.
type Bucket struct {
	BucketEncryption               *BucketEncryption
	PublicAccessBlockConfiguration *PublicAccessBlockConfiguration
}

func (Bucket) ResourceType() string { return "AWS::S3::Bucket" }

// BucketEncryption configures default server-side encryption.
type BucketEncryption struct {
	ServerSideEncryptionConfiguration []ServerSideEncryptionRule
}

// ServerSideEncryptionRule is one default-encryption rule.
type ServerSideEncryptionRule struct {
	ServerSideEncryptionByDefault ServerSideEncryptionByDefault
}

// ServerSideEncryptionByDefault selects the algorithm and key.
type ServerSideEncryptionByDefault struct {
	SSEAlgorithm   string
	KMSMasterKeyID any
}

// PublicAccessBlockConfiguration blocks public access to the bucket.
type PublicAccessBlockConfiguration struct {
	BlockPublicAcls       bool
	BlockPublicPolicy     bool
	IgnorePublicAcls      bool
	RestrictPublicBuckets bool
}

// KMSEncryption returns bucket encryption with the given KMS key.
func KMSEncryption(keyArn any) *BucketEncryption {
	return &BucketEncryption{
		ServerSideEncryptionConfiguration: []ServerSideEncryptionRule{{
			ServerSideEncryptionByDefault: ServerSideEncryptionByDefault{
				SSEAlgorithm:   "aws:kms",
				KMSMasterKeyID: keyArn,
			},
		}},
	}
}

// BlockAllPublicAccess blocks every form of public access.
var BlockAllPublicAccess = &PublicAccessBlockConfiguration{
	BlockPublicAcls:       true,
	BlockPublicPolicy:     true,
	IgnorePublicAcls:      true,
	RestrictPublicBuckets: true,
}
